// Command acscan reports every occurrence of a pattern list in files or
// standard input, one "name:start:end:pattern" line per match.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"

	"GoMatch/internal/automaton"
	"GoMatch/internal/dictionary"
	"GoMatch/internal/trie"
)

func main() {
	patternsPath := flag.String("patterns", "", "file with one pattern per line (required)")
	ruleName := flag.String("rule", trie.Exact.Name, "character rule: "+strings.Join(trie.RuleNames(), ", "))
	countOnly := flag.Bool("count", false, "print only the number of matches per input")
	flag.Parse()

	if *patternsPath == "" {
		fmt.Fprintln(os.Stderr, "acscan: -patterns is required")
		flag.Usage()
		os.Exit(2)
	}

	m, err := compile(*patternsPath, *ruleName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "acscan: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	failed := false
	for _, name := range inputs {
		if err := scanInput(ctx, m, name, *countOnly, out); err != nil {
			fmt.Fprintf(os.Stderr, "acscan: %v\n", err)
			failed = true
		}
	}
	if failed {
		out.Flush()
		os.Exit(1)
	}
}

func compile(path, ruleName string) (*automaton.Matcher, error) {
	rule, err := trie.RuleByName(ruleName)
	if err != nil {
		return nil, err
	}
	patterns, err := dictionary.ReadPatternsFile(path)
	if err != nil {
		return nil, err
	}
	t := trie.New(trie.WithRule(rule))
	for _, p := range patterns {
		if _, err := t.Add(p); err != nil {
			return nil, errors.Wrapf(err, "pattern %q", p)
		}
	}
	t.BuildFailureLinks()
	return automaton.NewMatcher(t)
}

func scanInput(ctx context.Context, m *automaton.Matcher, name string, countOnly bool, out io.Writer) error {
	var r io.Reader = os.Stdin
	label := "(stdin)"
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r, label = f, name
	}

	n := 0
	err := m.ScanReader(ctx, r, func(mt automaton.Match) error {
		n++
		if countOnly {
			return nil
		}
		_, err := fmt.Fprintf(out, "%s:%d:%d:%s\n", label, mt.Start, mt.End, mt.Pattern)
		return err
	})
	if err != nil {
		return errors.Wrap(err, label)
	}
	if countOnly {
		_, err = fmt.Fprintf(out, "%s:%d\n", label, n)
	}
	return err
}
