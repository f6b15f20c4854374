// Command breeze is the Breeze RMM control plane binary: it serves
// the REST API (serve), runs database migrations (migrate), and seeds
// the first system-scope operator (bootstrap-admin).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/breeze-rmm/breeze/internal/logging"
)

var version = "dev"

func main() {
	logging.Setup("breeze")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: breeze [serve|migrate|bootstrap-admin|version] [flags]")
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "bootstrap-admin":
		err = runBootstrapAdmin(os.Args[2:])
	case "version":
		fmt.Println(version)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "usage: breeze [serve|migrate|bootstrap-admin|version] [flags]")
		os.Exit(1)
	}
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
