// Command-line driver for segmentation editing sessions.
// Runs JSON edit scripts against a label volume described by a TOML configuration.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/janelia-flyem/segedit/config"
	"github.com/janelia-flyem/segedit/cubestore"
	"github.com/janelia-flyem/segedit/segment"
	"github.com/janelia-flyem/segedit/session"
	"github.com/janelia-flyem/segedit/vol"
)

// Version of the segedit command.
const Version = "0.9.0"

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Log debug messages if true.
	runDebug = flag.Bool("debug", false, "")

	// Path to the TOML configuration.  Leave unset for an in-memory default volume.
	configFile = flag.String("config", "", "")

	// Write the final objects to this file instead of stdout.
	outFile = flag.String("out", "", "")
)

const helpMessage = `
segedit edits a segmentation by brush painting, merging and splitting objects

Usage: segedit [options] <command>

      -config     =string   TOML configuration file.  Default is an in-memory volume.
      -out        =string   Write the session report to this file instead of stdout.
      -verbose    (flag)    Run in verbose mode.
      -debug      (flag)    Log debug messages.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	run <script.json>     Runs an edit script; use "-" to read it from stdin.
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		vol.Verbose = true
	}
	if *runDebug {
		vol.SetLogMode(vol.DebugMode)
	}

	// Capture ctrl+c and other interrupts so the session can flush before exiting.
	ctx, cancel := context.WithCancel(context.Background())
	stopSig := make(chan os.Signal, 1)
	go func() {
		sig := <-stopSig
		log.Printf("Stop signal captured: %q.  Shutting down...\n", sig)
		cancel()
	}()
	signal.Notify(stopSig, os.Interrupt, syscall.SIGTERM)

	if err := DoCommand(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		vol.Shutdown()
		os.Exit(1)
	}
	vol.Shutdown()
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cmd []string) error {
	if len(cmd) == 0 {
		return fmt.Errorf("blank command")
	}
	switch cmd[0] {
	case "about":
		fmt.Println(about())
		return nil
	case "run":
		if len(cmd) != 2 {
			return fmt.Errorf("run needs exactly one script file, got %d arguments", len(cmd)-1)
		}
		return DoRun(ctx, *configFile, cmd[1])
	default:
		return fmt.Errorf("unknown command %q, try 'segedit help'", cmd[0])
	}
}

func about() string {
	return fmt.Sprintf("segedit %s\ncube record version %s\n", Version, cubestore.RecordVersion)
}

// Report is what a run writes out once its script is done.
type Report struct {
	Session string             `json:"session"`
	Results []session.OpResult `json:"results"`
	Objects []segment.Object   `json:"objects"`
	Stats   session.Stats      `json:"stats"`
}

// DoRun runs a script file against a new session.
func DoRun(ctx context.Context, configPath, scriptPath string) error {
	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.Load(configPath); err != nil {
			return err
		}
	}
	c.Logging.SetLogger()

	data, err := readScript(scriptPath)
	if err != nil {
		return err
	}
	script, err := session.ParseScript(data)
	if err != nil {
		return err
	}

	sink, err := c.NewSink()
	if err != nil {
		return err
	}
	s, err := session.New(c, nil, sink)
	if err != nil {
		return err
	}
	results, runErr := s.Run(ctx, script)
	report := Report{
		Session: s.ID(),
		Results: results,
		Objects: s.Objects(),
		Stats:   s.Stats(),
	}
	vol.Infof("Session %s: %s\n", s.ID(), report.Stats)

	// Closing after a failed op still persists what was done before it.
	if err := s.Close(context.Background()); err != nil {
		vol.Errorf("error closing session %s: %v\n", s.ID(), err)
	}
	if err := writeReport(report); err != nil {
		return err
	}
	return runErr
}

func readScript(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read script %q: %v", path, err)
	}
	return data, nil
}

func writeReport(report Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if *outFile == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(*outFile, out, 0644)
}
