// Package subcmd wraps flag.FlagSet with usage text for one bandcruise
// subcommand and an optional required positional argument.
package subcmd

import (
	"flag"
	"fmt"
	"io"
)

func New(name, doc string) *Subcommand {
	sc := &Subcommand{
		FlagSet: flag.NewFlagSet(name, flag.ContinueOnError),
		name:    name,
		doc:     doc,
	}
	sc.FlagSet.Usage = func() { sc.usage(sc.FlagSet.Output()) }
	return sc
}

type Subcommand struct {
	*flag.FlagSet
	name string
	doc  string
	arg  *arg
}

type arg struct {
	name     string
	typename string
	usage    string
}

func (sc *Subcommand) usage(w io.Writer) {
	argSuffix := ""
	if sc.arg != nil {
		argSuffix = fmt.Sprintf(" <%s>", sc.arg.name)
	}
	fmt.Fprintf(w, "\n%s\n\n", sc.doc)
	fmt.Fprintf(w, "  bandcruise %s [flags]%s\n\n", sc.name, argSuffix)
	fmt.Fprintf(w, "flags:\n")
	sc.FlagSet.PrintDefaults()
	if sc.arg != nil {
		fmt.Fprintf(w, "  <%s> %s\n", sc.arg.name, sc.arg.typename)
		fmt.Fprintf(w, "  \t%s\n", sc.arg.usage)
	}
}

func (sc *Subcommand) SetArg(name, typname, usage string) *Subcommand {
	sc.arg = &arg{name, typname, usage}
	return sc
}

// ParseArg parses flags and returns the positional argument set with SetArg.
// Flags must come before the argument.
func (sc *Subcommand) ParseArg(args []string) (string, error) {
	if err := sc.Parse(args); err != nil {
		return "", err
	}
	if sc.arg == nil {
		return "", nil
	}
	if sc.NArg() != 1 {
		sc.usage(sc.FlagSet.Output())
		return "", fmt.Errorf("%s takes exactly one <%s>, got %d arguments", sc.name, sc.arg.name, sc.NArg())
	}
	return sc.Arg(0), nil
}
