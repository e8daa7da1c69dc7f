// Command demoserver serves pages with known accessibility violations for
// trying out a11ylens against.
//
//	go run ./cmd/demoserver [-port 9999] [-version 1]
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/raysh454/a11ylens/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.IntVar(&cfg.InitialVersion, "version", cfg.InitialVersion, "fixture revision to start at (1 is the most broken)")
	flag.Parse()
	if cfg.Port < 1 || cfg.Port > 65535 {
		fmt.Fprintf(os.Stderr, "demoserver: invalid port %d\n", cfg.Port)
		os.Exit(2)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range demoserver.GetAllPages() {
		fmt.Fprintf(tw, "  %s\t%s\n", p.Path, p.Description)
	}
	tw.Flush()
	fmt.Printf("\nscan one with: a11ylens scan http://localhost:%d/broken\n", cfg.Port)
	fmt.Printf("switch revisions at http://localhost:%d/demo/control\n\n", cfg.Port)

	if err := demoserver.NewDemoServer(cfg).Start(); err != nil {
		fmt.Fprintf(os.Stderr, "demoserver: %v\n", err)
		os.Exit(1)
	}
}
