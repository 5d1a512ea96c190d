// Command govkerneld loads a kernel configuration and tool registry and
// reports whether the deployment is wired correctly: config parses, the
// registry loads, and the release root key is reachable in the vault.
// Running the executor pipeline against live tool dispatch is the host's
// responsibility (spec §1 non-goal); this binary only validates the
// governance-side wiring.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/aegisrail/govkernel/pkg/config"
	"github.com/aegisrail/govkernel/pkg/ledger"
	"github.com/aegisrail/govkernel/pkg/registry"
	"github.com/aegisrail/govkernel/pkg/vault"
)

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok | fail
	Detail string `json:"detail,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("govkerneld", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		configPath   string
		registryPath string
		schemaPath   string
		vaultDir     string
		walDialect   string
		walDSN       string
		jsonOutput   bool
	)
	fs.StringVar(&configPath, "config", "", "path to the kernel configuration YAML (REQUIRED)")
	fs.StringVar(&registryPath, "registry", "", "path to the tool registry YAML (REQUIRED)")
	fs.StringVar(&schemaPath, "registry-schema", "", "optional JSON Schema to validate the registry against")
	fs.StringVar(&vaultDir, "vault-dir", "", "directory holding sealed keys, checked for a release key")
	fs.StringVar(&walDialect, "wal-dialect", "", "sqlite|postgres, checks ledger WAL connectivity if set")
	fs.StringVar(&walDSN, "wal-dsn", "", "data source name (sqlite path or postgres DSN) for the WAL check")
	fs.BoolVar(&jsonOutput, "json", false, "emit results as JSON")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if configPath == "" || registryPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: govkerneld -config FILE -registry FILE [-registry-schema FILE] [-vault-dir DIR] [-wal-dialect sqlite|postgres -wal-dsn DSN] [-json]")
		return 2
	}

	var results []checkResult
	allOK := true
	note := func(name string, err error, detail string) {
		if err != nil {
			results = append(results, checkResult{Name: name, Status: "fail", Detail: err.Error()})
			allOK = false
			return
		}
		results = append(results, checkResult{Name: name, Status: "ok", Detail: detail})
	}

	raw, err := os.ReadFile(configPath)
	if err == nil {
		_, err = config.Load(raw)
	}
	note("config", err, configPath)

	reg, err := registry.Load(registryPath, schemaPath)
	if err == nil {
		note("registry", nil, fmt.Sprintf("version %s", reg.Version()))
	} else {
		note("registry", err, "")
	}

	if vaultDir != "" {
		backend, berr := vault.NewFileBackend(vaultDir)
		if berr == nil {
			v := vault.New(backend)
			addr, addrErr := v.Address(vault.RoleRelease)
			note("release_key", addrErr, addr)
		} else {
			note("release_key", berr, "")
		}
	}

	if walDialect != "" {
		var walErr error
		switch walDialect {
		case "sqlite":
			var w *ledger.SQLWAL
			w, walErr = ledger.OpenSQLiteWAL(walDSN)
			if walErr == nil {
				_, walErr = w.Pending()
			}
		case "postgres":
			var w *ledger.SQLWAL
			w, walErr = ledger.OpenPostgresWAL(walDSN)
			if walErr == nil {
				_, walErr = w.Pending()
			}
		default:
			walErr = fmt.Errorf("unknown -wal-dialect %q, want sqlite|postgres", walDialect)
		}
		note("wal_db", walErr, walDSN)
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(out))
	} else {
		for _, r := range results {
			fmt.Printf("  %-4s %-14s %s\n", statusTag(r.Status), r.Name, r.Detail)
		}
	}

	if allOK {
		return 0
	}
	return 1
}

func statusTag(status string) string {
	if status == "ok" {
		return "[ok]"
	}
	return "[fail]"
}
