package main

// #region imports
import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrel-safety/guardian/internal/confidence"
	"github.com/kestrel-safety/guardian/internal/config"
	"github.com/kestrel-safety/guardian/internal/intent"
	"github.com/kestrel-safety/guardian/internal/logging"
	"github.com/kestrel-safety/guardian/internal/metrics"
	"github.com/kestrel-safety/guardian/internal/monitor"
	"github.com/kestrel-safety/guardian/internal/notify"
	"github.com/kestrel-safety/guardian/internal/signal"
	"github.com/kestrel-safety/guardian/internal/store"
	"github.com/kestrel-safety/guardian/internal/vault"
)

// #endregion

// #region core

// core bundles the running decision components behind the REPL.
type core struct {
	cfg        config.Config
	store      *store.Store
	audit      *logging.AuditLog
	metrics    *metrics.Metrics
	danger     *monitor.Monitor
	coercion   *monitor.CoercionMonitor
	situation  *monitor.Monitor
	correlator *intent.Correlator
	vault      *vault.Vault
}

// #endregion core

// #region main

func main() {
	configPath := flag.String("config", "guardian.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.NewStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	audit, err := logging.NewAuditLog(st.DB())
	if err != nil {
		log.Fatalf("failed to init audit log: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.ListenAddr, reg)
	}

	c := buildCore(cfg, st, audit, m)

	stop := make(chan struct{})
	defer close(stop)
	go c.pollLoop(stop)

	fmt.Println("Guardian decision core ready.")
	fmt.Printf("  DB: %s", cfg.Storage.DBPath)
	if cfg.Metrics.Enabled {
		fmt.Printf(" | Metrics: http://%s/metrics", cfg.Metrics.ListenAddr)
	}
	fmt.Println()
	fmt.Println("Type 'help' for commands (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		c.handle(line)
	}
}

// #endregion main

// #region build

func buildCore(cfg config.Config, st *store.Store, audit *logging.AuditLog, m *metrics.Metrics) *core {
	c := &core{cfg: cfg, store: st, audit: audit, metrics: m}

	mcfg := monitor.Config{
		Notifier: notify.LogNotifier{},
		Audit:    audit,
		Metrics:  m,
	}
	c.danger = monitor.NewDanger(mcfg)
	c.coercion = monitor.NewCoercion(mcfg)
	c.situation = monitor.NewSituational(mcfg)

	c.correlator = intent.New(intent.Config{
		Audit:   audit,
		Metrics: m,
		OnConfirm: func(st intent.State) {
			log.Printf("[INTENT] check-in confirmed, score=%d events=%d", st.Score, len(st.Events))
		},
	})

	vcfg := vault.Config{
		Store:     st,
		Audit:     audit,
		Metrics:   m,
		OnRelease: releaseSink,
	}
	resumed, err := vault.Resume(vcfg)
	if err != nil {
		log.Printf("[VAULT] resume failed: %v", err)
	}
	if resumed != nil {
		c.vault = resumed
		log.Printf("[VAULT] resumed unreleased lock %s", resumed.State().Lock.ID)
	} else {
		c.vault = vault.New(vcfg)
	}
	return c
}

func releaseSink(lock vault.Lock, evidence []vault.EvidenceItem, outcome vault.Outcome) {
	log.Printf("[RELEASE] lock %s outcome=%s items=%d snapshot=%s",
		lock.ID, outcome, len(evidence), lock.EvidenceHash[:12])
	for _, item := range evidence {
		log.Printf("[RELEASE]   %s %s %s", item.ID, item.Type, item.IntegrityHash[:12])
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[METRICS] server stopped: %v", err)
	}
}

// pollLoop re-evaluates decaying scores and the vault deadline. The
// interval only affects display staleness, never outcomes.
func (c *core) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(c.cfg.Poll.IntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.danger.Poll()
			c.coercion.Poll()
			c.situation.Poll()
			c.vault.Evaluate()
		}
	}
}

// #endregion build

// #region commands

func (c *core) handle(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		printHelp()
	case "danger", "coercion", "situational":
		c.handleSignal(cmd, args)
	case "intent":
		c.handleIntent(args)
	case "evidence":
		c.handleEvidence(args)
	case "lock":
		c.handleLock(args)
	case "cancel":
		c.reportErr(c.vault.Cancel())
	case "release":
		c.reportErr(c.vault.Release())
	case "verify":
		c.handleVerify()
	case "status":
		c.handleStatus()
	case "silent":
		fmt.Printf("silent mode: %t\n", c.coercion.SilentMode())
	case "reset-silent":
		c.coercion.ResetSilentMode()
		fmt.Println("silent mode cleared")
	case "reset-intent":
		c.correlator.Reset()
		fmt.Println("intent correlator reset")
	case "audit":
		c.handleAudit(args)
	default:
		fmt.Printf("unknown command %q, try 'help'\n", cmd)
	}
}

func (c *core) handleSignal(domain string, args []string) {
	if len(args) < 2 {
		fmt.Printf("usage: %s <kind> <value> [description]\n", domain)
		return
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Printf("bad value %q: %v\n", args[1], err)
		return
	}
	description := strings.Join(args[2:], " ")

	var state confidence.State
	switch domain {
	case "danger":
		state, err = c.danger.AddSignal(signal.Kind(args[0]), value, description)
	case "coercion":
		state, err = c.coercion.AddSignal(signal.Kind(args[0]), value, description)
	case "situational":
		state, err = c.situation.AddSignal(signal.Kind(args[0]), value, description)
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	c.journal(domain, args[0], value, description)
	fmt.Printf("[%s] score=%d level=%s signals=%d\n", domain, state.Score, state.Level, len(state.Signals))
}

// journal records an accepted event for later fixture export.
func (c *core) journal(domain, kind string, value float64, description string) {
	err := c.store.SaveSignal(store.JournalEntry{
		Domain:      domain,
		Kind:        kind,
		Value:       value,
		Description: description,
		RecordedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[JOURNAL] save failed: %v", err)
	}
}

func (c *core) handleIntent(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: intent <kind> <confidence 0..1>")
		return
	}
	conf, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Printf("bad confidence %q: %v\n", args[1], err)
		return
	}
	st, err := c.correlator.RegisterEvent(intent.Kind(args[0]), conf)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	c.journal("intent", args[0], conf, "")
	fmt.Printf("[intent] score=%d confirmed=%t events=%d\n", st.Score, st.Confirmed, len(st.Events))
}

func (c *core) handleEvidence(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: evidence <type> <payload...>")
		return
	}
	item, err := c.vault.AddEvidence(args[0], []byte(strings.Join(args[1:], " ")))
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("[vault] recorded %s %s hash=%s\n", item.ID, item.Type, item.IntegrityHash[:12])
}

func (c *core) handleLock(args []string) {
	hours := c.cfg.Vault.DefaultAutoReleaseHours
	if len(args) > 0 {
		h, err := strconv.ParseFloat(args[0], 64)
		if err != nil || h <= 0 {
			fmt.Printf("bad hours %q\n", args[0])
			return
		}
		hours = h
	}
	lock, err := c.vault.LockIncident(hours)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("[vault] locked %s, auto-release %s, cancel until %s\n",
		lock.ID,
		lock.UnlockDeadline.Format(time.RFC3339),
		lock.CancelWindowEnd.Format(time.RFC3339))
}

func (c *core) handleVerify() {
	report := c.vault.Verify()
	if report.TamperedCount == 0 && report.SnapshotOK {
		fmt.Printf("ledger clean: %d items verified\n", len(report.Items))
		return
	}
	fmt.Printf("INTEGRITY FAILURE: %d tampered items, snapshot ok=%t\n",
		report.TamperedCount, report.SnapshotOK)
	for _, item := range report.Items {
		if !item.OK {
			fmt.Printf("  %s %s stored=%s computed=%s\n",
				item.ItemID, item.Type, item.Stored[:12], item.Computed[:12])
		}
	}
}

func (c *core) handleStatus() {
	for _, row := range []struct {
		name  string
		state confidence.State
	}{
		{"danger", c.danger.Poll()},
		{"coercion", c.coercion.Poll()},
		{"situational", c.situation.Poll()},
	} {
		fmt.Printf("%-12s score=%-3d level=%s\n", row.name, row.state.Score, row.state.Level)
	}

	ist := c.correlator.State()
	fmt.Printf("%-12s score=%-3d confirmed=%t\n", "intent", ist.Score, ist.Confirmed)
	fmt.Printf("%-12s %t\n", "silent-mode", c.coercion.SilentMode())

	vst := c.vault.State()
	switch {
	case vst.Outcome != "":
		fmt.Printf("%-12s %s, %d items\n", "vault", vst.Outcome, vst.EvidenceCount)
	case vst.Locked:
		fmt.Printf("%-12s locked %s, releases in %s, %d items\n",
			"vault", vst.Lock.ID, vst.Remaining.Round(time.Second), vst.EvidenceCount)
	default:
		fmt.Printf("%-12s unlocked, %d items staged\n", "vault", vst.EvidenceCount)
	}
}

func (c *core) handleAudit(args []string) {
	limit := 20
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := c.audit.List(limit)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-11s %-17s %-10s %d  %s\n",
			e.CreatedAt.Format("15:04:05"), e.Domain, e.Event, e.Level, e.Score, e.Detail)
	}
}

func (c *core) reportErr(err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Println("ok")
}

func printHelp() {
	fmt.Println(`commands:
  danger|coercion|situational <kind> <value> [desc]   ingest a signal
  intent <kind> <confidence>                          register intent event
  evidence <type> <payload...>                        append to evidence ledger
  lock [hours]                                        lock incident
  cancel | release | verify                           vault operations
  status                                              show all scores
  silent | reset-silent | reset-intent                mode controls
  audit [n]                                           recent audit entries
  quit`)
}

// #endregion commands
