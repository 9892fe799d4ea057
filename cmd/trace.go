package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/named-data/ndnd/fw/core/tracestore"
	"github.com/named-data/ndnd/std/utils/toolutils"
	"github.com/spf13/cobra"
)

var traceBadgerDir string

// CmdTrace queries a Badger-backed fwperc trace store by prefix, for
// inspecting a router's persisted weight history after the fact - the
// command-line counterpart to BadgerSink.QueryPrefix.
var CmdTrace = &cobra.Command{
	Use:     "trace PREFIX",
	Short:   "Query the fwperc trace store for PREFIX",
	GroupID: "run",
	Args:    cobra.ExactArgs(1),
	Run:     runTrace,
}

func init() {
	CmdTrace.Flags().StringVar(&traceBadgerDir, "badger-dir", "", "Badger trace store directory (Config.Trace.Badger)")
	CmdTrace.MarkFlagRequired("badger-dir")
}

func runTrace(cmd *cobra.Command, args []string) {
	prefix := args[0]

	sink, err := tracestore.NewBadgerSink(traceBadgerDir)
	if err != nil {
		fmt.Println("unable to open trace store:", err)
		return
	}
	defer sink.Close()

	rows, err := sink.QueryPrefix(prefix)
	if err != nil {
		fmt.Println("query failed:", err)
		return
	}

	keys := make([]string, len(rows))
	padding := 10
	for i, row := range rows {
		keys[i] = fmt.Sprintf("face-%d", row.FaceId)
		if len(keys[i])+2 > padding {
			padding = len(keys[i]) + 2
		}
	}

	fmt.Printf("%d row(s) for %s:\n", len(rows), prefix)
	p := toolutils.StatusPrinter{File: os.Stdout, Padding: padding}
	for i, row := range rows {
		p.Print(keys[i], fmt.Sprintf("%s=%.4f @ %s", row.Type, row.Value, row.Time.Format(time.RFC3339)))
	}
}
