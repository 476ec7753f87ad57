// stately - manifest-driven class engine tool
//
// Loads a stately.toml manifest, materializes its classes, states, and
// hooks, and inspects or snapshots the result.
//
// Build: go build ./cmd/stately
// Usage:
//   stately classes                  # list classes from the manifest
//   stately inspect Actor            # show one class in detail
//   stately snapshot                 # store class digests in the database
//   stately instance actor_ab12...   # show a stored instance snapshot
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/stately-go/stately/manifest"
	"github.com/stately-go/stately/mixin"
	"github.com/stately-go/stately/mixin/digest"
	"github.com/stately-go/stately/store"
)

var log = commonlog.GetLogger("stately")

var (
	manifestDir = flag.String("dir", ".", "Directory containing "+manifest.FileName)
	dbPath      = flag.String("db", "stately.db", "SQLite snapshot database path")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stately [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  classes            List classes declared in the manifest\n")
		fmt.Fprintf(os.Stderr, "  inspect <class>    Show selectors, states, and hooks for one class\n")
		fmt.Fprintf(os.Stderr, "  snapshot           Digest every class into the database\n")
		fmt.Fprintf(os.Stderr, "  instance <id>      Show a stored instance snapshot\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stately classes\n")
		fmt.Fprintf(os.Stderr, "  stately -dir ./game inspect Enemy\n")
		fmt.Fprintf(os.Stderr, "  stately -db game.db snapshot\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "classes":
		err = runClasses()
	case "inspect":
		if len(args) < 2 {
			err = errors.New("inspect requires a class name")
		} else {
			err = runInspect(args[1])
		}
	case "snapshot":
		err = runSnapshot()
	case "instance":
		if len(args) < 2 {
			err = errors.New("instance requires an instance ID")
		} else {
			err = runInstance(args[1])
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEngine reads the manifest and materializes it into a fresh engine.
func loadEngine() (*mixin.Engine, *manifest.Manifest, error) {
	m, err := manifest.Load(*manifestDir)
	if err != nil {
		return nil, nil, err
	}
	e := mixin.NewEngine()
	if err := m.Build(e); err != nil {
		return nil, nil, err
	}
	log.Infof("loaded manifest %s: %d classes, %d hooks",
		m.Project.Name, len(m.Classes), len(m.Hooks))
	return e, m, nil
}

func runClasses() error {
	e, m, err := loadEngine()
	if err != nil {
		return err
	}

	fmt.Printf("Project: %s", m.Project.Name)
	if m.Project.Version != "" {
		fmt.Printf(" %s", m.Project.Version)
	}
	fmt.Println()

	classes := e.Classes().All()
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	for _, c := range classes {
		line := "  " + c.Name
		if c.Superclass != nil {
			line += " < " + c.Superclass.Name
		}
		var marks []string
		if c.HooksEnabled() {
			marks = append(marks, "hooks")
		}
		if c.Stateful() {
			marks = append(marks, fmt.Sprintf("%d states", c.States().Len()))
		}
		if len(marks) > 0 {
			line += " [" + strings.Join(marks, ", ") + "]"
		}
		fmt.Println(line)
	}
	fmt.Printf("\nTotal: %d classes\n", len(classes))
	return nil
}

func runInspect(name string) error {
	e, _, err := loadEngine()
	if err != nil {
		return err
	}
	c := e.Classes().Lookup(name)
	if c == nil {
		return fmt.Errorf("class %s: %w", name, mixin.ErrUnknownClass)
	}

	d := digest.DigestClass(e, c)
	fmt.Printf("Class: %s\n", d.Name)
	if d.SuperclassName != "" {
		fmt.Printf("Superclass: %s\n", d.SuperclassName)
	}
	fmt.Printf("Shape: %s\n", d.HexHash())

	if len(d.InstanceVars) > 0 {
		fmt.Printf("\nInstance Variables:\n")
		for _, v := range d.InstanceVars {
			fmt.Printf("  %s\n", v)
		}
	}
	if len(d.Selectors) > 0 {
		fmt.Printf("\nSelectors:\n")
		for _, sel := range d.Selectors {
			before, after := e.Hooks().Count(c, sel)
			if before+after > 0 {
				fmt.Printf("  %s (%d before, %d after)\n", sel, before, after)
			} else {
				fmt.Printf("  %s\n", sel)
			}
		}
	}
	if len(d.States) > 0 {
		fmt.Printf("\nStates:\n")
		for _, s := range d.States {
			if s.Parent != "" {
				fmt.Printf("  %s < %s\n", s.Name, s.Parent)
			} else {
				fmt.Printf("  %s\n", s.Name)
			}
		}
	}
	return nil
}

func runSnapshot() error {
	e, _, err := loadEngine()
	if err != nil {
		return err
	}
	s, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.SnapshotClasses(e)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d class digests in %s\n", n, *dbPath)
	return nil
}

func runInstance(id string) error {
	s, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.LoadInstance(id)
	if err != nil {
		return err
	}

	fmt.Printf("Instance: %s\n", rec.ID)
	fmt.Printf("Class: %s\n", rec.Class)
	if rec.State != "" {
		fmt.Printf("State: %s", rec.State)
		if len(rec.Stack) > 1 {
			fmt.Printf(" (stack: %s)", strings.Join(rec.Stack, " > "))
		}
		fmt.Println()
	}

	fmt.Printf("\nInstance Variables:\n")
	names := make([]string, 0, len(rec.Vars))
	for name := range rec.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %v\n", name, rec.Vars[name])
	}
	return nil
}
