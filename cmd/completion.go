package cmd

import (
	"flag"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors predicts the values of the flags that are not free text.
var flagPredictors = map[string]complete.Predictor{
	"config": predict.Files("*.toml"),
	"book":   predict.Files("*.jsonl"),
	"prices": predict.Files("*.json"),
	"output": predict.Set{"term", "markdown", "html"},
	"method": predict.Set(taxlot.CostBasisMethods()),
	"v":      predict.Nothing,
}

// Completion returns the shell completion of the tlx command line.
// Call Complete("tlx") on it before parsing the flags: it is a no-op unless
// the shell is asking for completions.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(flag.CommandLine),
	}
	for _, g := range Commands {
		for _, cmd := range g.Commands {
			f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
			cmd.SetFlags(f)
			sub := &complete.Command{Flags: predictFlags(f)}
			if cmd.Name() == "topic" {
				topics, _ := docs.GetAllTopics()
				sub.Args = predict.Set(topics)
			}
			root.Sub[cmd.Name()] = sub
		}
	}
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	return root
}

func predictFlags(f *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		if p, ok := flagPredictors[fl.Name]; ok {
			flags[fl.Name] = p
			return
		}
		if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[fl.Name] = predict.Nothing
			return
		}
		flags[fl.Name] = predict.Something
	})
	return flags
}
