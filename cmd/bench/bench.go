// bench runs repeated BB84 negotiations for each entry in the cartesian
// product of a collection of tuning parameters, e.g. key length and
// eavesdropper coverage, and outputs a CSV of aggregate statistics for
// each combination.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"text/template"

	flag "github.com/spf13/pflag"
	"gonum.org/v1/gonum/stat"

	"github.com/qkdlab/qkdsim/bb84"
	"github.com/qkdlab/qkdsim/bb84/photon"
)

var (
	keyBits = flag.IntSlice("keyBits", []int{bb84.DefaultKeyBits},
		"The raw key lengths (qubits per run) to sweep.")
	eveFraction = flag.Float64Slice("eveFraction", []float64{0},
		"The fractions of qubits intercepted by the eavesdropper; 0 disables the tap.")
	flipProb = flag.Float64Slice("flipProb", []float64{0},
		"The per-qubit channel bit-flip probabilities to sweep.")
	lossProb = flag.Float64Slice("lossProb", []float64{0},
		"The per-qubit channel loss probabilities to sweep.")
	sampleProp = flag.Float64Slice("sampleProp", []float64{bb84.DefaultSampleProportion},
		"The error-estimation sample proportions to sweep.")
	trials = flag.Int("trials", 20, "Negotiations to run per parameter combination.")
	seed   = flag.Int64("seed", 42, "Base PRNG seed.")
)

var (
	inputs  = []string{"keyBits", "eveFraction", "flipProb", "lossProb", "sampleProp"}
	columns = []string{"KeyBits", "EveFraction", "FlipProb", "LossProb", "SampleProp",
		"Trials", "MeanQBER", "StdQBER", "MeanKeyBits", "AbortRate", "MatchRate"}
)

// An Experiment packages together the aggregate result of benchmarking
// a single parameterization for easy formatting.
type Experiment struct {
	// Fields corresponding to experiment parameters
	KeyBits     int
	EveFraction float64
	FlipProb    float64
	LossProb    float64
	SampleProp  float64
	Trials      int

	// Fields corresponding to experiment results
	MeanQBER    float64
	StdQBER     float64
	MeanKeyBits float64
	AbortRate   float64
	MatchRate   float64
}

func main() {
	flag.Parse()
	fmt.Println(strings.Join(columns, ", "))
	tmpl := template.Must(template.New("line").Parse(lineTmpl()))
	var args [][]interface{}
	for _, inp := range inputs {
		args = append(args, lookupInput(inp))
	}
	applyCartesian(func(args []interface{}) {
		exp := &Experiment{
			KeyBits:     args[inpIndex("keyBits")].(int),
			EveFraction: args[inpIndex("eveFraction")].(float64),
			FlipProb:    args[inpIndex("flipProb")].(float64),
			LossProb:    args[inpIndex("lossProb")].(float64),
			SampleProp:  args[inpIndex("sampleProp")].(float64),
			Trials:      *trials,
		}
		if err := bench(exp); err != nil {
			log.Printf("Benching %+v: %v", exp, err)
		}
		if err := tmpl.Execute(os.Stdout, exp); err != nil {
			log.Fatalf("BUG: could not fill in line template: %v", err)
		}
	}, args)
}

func bench(exp *Experiment) error {
	rng := rand.New(rand.NewSource(*seed))
	var qbers, keyLens []float64
	var aborts, matches int
	for i := 0; i < exp.Trials; i++ {
		cfg := bb84.Config{
			KeyBits:          exp.KeyBits,
			SampleProportion: exp.SampleProp,
			Rand:             rand.New(rand.NewSource(rng.Int63())),
		}
		if exp.EveFraction > 0 {
			cfg.Eavesdropper = &photon.Eavesdropper{Fraction: exp.EveFraction}
		}
		if exp.FlipProb > 0 || exp.LossProb > 0 {
			cfg.Noise = photon.NewNoise(exp.FlipProb, exp.LossProb, uint64(rng.Int63()))
		}
		res, err := bb84.Run(cfg)
		if res != nil {
			qbers = append(qbers, res.BobStats.QBER)
		}
		if err != nil {
			aborts++
			continue
		}
		keyLens = append(keyLens, float64(res.AliceStats.KeyBits))
		if res.Match {
			matches++
		}
	}
	exp.MeanQBER = stat.Mean(qbers, nil)
	exp.StdQBER = stat.StdDev(qbers, nil)
	if len(keyLens) > 0 {
		exp.MeanKeyBits = stat.Mean(keyLens, nil)
	}
	exp.AbortRate = float64(aborts) / float64(exp.Trials)
	exp.MatchRate = float64(matches) / float64(exp.Trials)
	return nil
}

func inpIndex(v string) int {
	for i, inp := range inputs {
		if inp == v {
			return i
		}
	}
	return -1
}

func lineTmpl() string {
	var els []string
	for _, c := range columns {
		els = append(els, "{{."+c+"}}")
	}
	return strings.Join(els, ", ") + "\n"
}

func lookupInput(name string) []interface{} {
	var r []interface{}
	if v, err := flag.CommandLine.GetIntSlice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else if v, err := flag.CommandLine.GetFloat64Slice(name); err == nil {
		for _, val := range v {
			r = append(r, val)
		}
	} else {
		log.Fatalf("Unknown type for input %s", name)
	}
	return r
}

func applyCartesian(f func([]interface{}), args [][]interface{}) {
	for i := range args {
		if len(args[i]) == 1 {
			continue
		}
		l := make([][]interface{}, len(args))
		r := make([][]interface{}, len(args))
		copy(l, args)
		copy(r, args)
		l[i] = args[i][:1]
		r[i] = args[i][1:]
		applyCartesian(f, l)
		applyCartesian(f, r)
		return
	}
	x := make([]interface{}, 0, len(args))
	for _, a := range args {
		x = append(x, a[0])
	}
	f(x)
}
