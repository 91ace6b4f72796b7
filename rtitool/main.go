// Command rtitool inspects, converts and creates tunings, and sends them to
// MIDI devices as tuning dumps.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/jangler/tuning"
	"github.com/jangler/tuning/mts"
	"github.com/jangler/tuning/scala"
	"github.com/pkg/errors"
	driver "gitlab.com/gomidi/rtmididrv"
)

const appName = "rtitool"

// maximum number of steps listed by info
const infoNotesMax = 128

type app struct {
	settings *settings
	logger   *slog.Logger
	stdout   io.Writer
}

type command struct {
	args string
	help string
	run  func(a *app, args []string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"info":           {"FILE", "print a summary of a tuning", runInfo},
		"convert":        {"IN OUT", "convert between .tun, .yaml, .scl and (write only) .syx files", runConvert},
		"geometric":      {"[flags] OUT", "create an equal division of a period", runGeometric},
		"groupgeometric": {"[flags] OUT", "create a tuning repeating a list of intervals", runGroupGeometric},
		"mts":            {"FILE OUT", "write a MIDI tuning standard bulk dump", runMTS},
		"send":           {"FILE", "send a MIDI tuning standard bulk dump to the output port", runSend},
		"ports":          {"", "list MIDI output ports", runPorts},
	}
}

func main() {
	config := flag.String("config", "", "settings file applied after config/settings.csv")
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	s := loadSettings(*config, func(msg string) { logger.Warn(msg) })
	level.Set(s.logLevel())

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		logger.Error("unknown command", slog.String("command", flag.Arg(0)))
		flag.Usage()
		os.Exit(2)
	}
	a := &app{settings: s, logger: logger, stdout: os.Stdout}
	if err := cmd.run(a, flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error(flag.Arg(0)+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-config FILE] COMMAND [ARGS]\n\nCommands:\n", appName)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %s %s\n    \t%s\n", name, c.args, c.help)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}

// check the positional argument count
func wantArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return errors.Errorf("expected %d arguments: %s", n, usage)
	}
	return nil
}

type infoNote struct {
	Step      int16
	Name      string
	Ratio     float32
	Cents     float64
	Frequency float64
}

type infoData struct {
	Name       string
	Kind       string
	Lo, Hi     int16
	GroupSize  uint16
	GroupRatio float32
	FineSteps  uint32
	Notes      []infoNote
}

// collect template data: one period starting at step 0 for periodic
// tunings, the start of the table otherwise
func (a *app) info(t *tuning.Tuning) infoData {
	lo, hi := t.ValidityRange()
	d := infoData{
		Name:       t.Name(),
		Kind:       t.Kind().String(),
		Lo:         lo,
		Hi:         hi,
		GroupSize:  t.GroupSize(),
		GroupRatio: t.GroupRatio(),
		FineSteps:  t.FineStepCount(),
	}
	first, n := int(lo), int(hi)-int(lo)+1
	if t.GroupSize() > 0 {
		first, n = 0, int(t.GroupSize())+1
	}
	if n > infoNotesMax {
		n = infoNotesMax
	}
	for i := first; i < first+n && i <= math.MaxInt16; i++ {
		step := int16(i)
		r := t.Ratio(step)
		d.Notes = append(d.Notes, infoNote{
			Step:      step,
			Name:      t.NoteName(step, true),
			Ratio:     r,
			Cents:     1200 * math.Log2(float64(r)),
			Frequency: a.settings.ReferenceFrequency * float64(r),
		})
	}
	return d
}

func runInfo(a *app, args []string) error {
	if err := wantArgs(args, 1, "FILE"); err != nil {
		return err
	}
	t, err := loadTuning(args[0])
	if err != nil {
		return err
	}
	tmpl, err := template.New("info").Funcs(sprig.TxtFuncMap()).Parse(a.settings.infoTemplate())
	if err != nil {
		return errors.Wrap(err, "InfoTemplate")
	}
	return tmpl.Execute(a.stdout, a.info(t))
}

func runConvert(a *app, args []string) error {
	if err := wantArgs(args, 2, "IN OUT"); err != nil {
		return err
	}
	t, err := loadTuning(args[0])
	if err != nil {
		return err
	}
	if err := saveTuning(args[1], t, a.settings); err != nil {
		return err
	}
	a.logger.Info("converted", slog.String("from", args[0]), slog.String("to", args[1]))
	return nil
}

// flags shared by the create commands
type createFlags struct {
	name   *string
	lo, hi *int
	fine   *int
}

func (a *app) newCreateFlags(fs *flag.FlagSet) *createFlags {
	return &createFlags{
		name: fs.String("name", "", "tuning name"),
		lo:   fs.Int("lo", tuning.StepMinDefault, "lowest step"),
		hi:   fs.Int("hi", tuning.StepMinDefault+tuning.RatioTableSizeDefault-1, "highest step"),
		fine: fs.Int("fine", a.settings.DefaultFineSteps, "fine steps between steps"),
	}
}

// check the range flags and return them as steps
func (c *createFlags) steps() (int16, int16, error) {
	if *c.lo < math.MinInt16 || *c.hi > math.MaxInt16 {
		return 0, 0, errors.Errorf("steps must be in [%d, %d]", math.MinInt16, math.MaxInt16)
	}
	return int16(*c.lo), int16(*c.hi), nil
}

// apply name and fine steps and save to the single positional argument
func (a *app) finishCreate(fs *flag.FlagSet, c *createFlags, t *tuning.Tuning) error {
	if err := wantArgs(fs.Args(), 1, "OUT"); err != nil {
		return err
	}
	if *c.name != "" {
		t.SetName(*c.name)
	}
	if *c.fine < 0 {
		return errors.Errorf("fine step count %d is negative", *c.fine)
	}
	t.SetFineStepCount(uint32(*c.fine))
	if err := saveTuning(fs.Arg(0), t, a.settings); err != nil {
		return err
	}
	a.logger.Info("created", slog.String("kind", t.Kind().String()), slog.String("file", fs.Arg(0)))
	return nil
}

// parse an interval flag as a ratio
func parseRatio(s string) (float32, error) {
	iv, err := scala.ParseInterval(s)
	if err != nil {
		return 0, err
	}
	return float32(iv.Ratio()), nil
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s %s %s\n", appName, name, commands[name].args)
		fs.PrintDefaults()
	}
	return fs
}

func runGeometric(a *app, args []string) error {
	fs := newFlagSet(a, "geometric")
	steps := fs.Int("steps", 12, "steps per period")
	period := fs.String("period", "2/1", "period as a ratio, cents or equal steps")
	c := a.newCreateFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := parseRatio(*period)
	if err != nil {
		return err
	}
	lo, hi, err := c.steps()
	if err != nil {
		return err
	}
	if *steps < 1 || *steps > math.MaxUint16 {
		return errors.Errorf("steps per period %d out of range", *steps)
	}
	t := tuning.New()
	if err := t.CreateGeometric(uint16(*steps), r, lo, hi); err != nil {
		return err
	}
	return a.finishCreate(fs, c, t)
}

func runGroupGeometric(a *app, args []string) error {
	fs := newFlagSet(a, "groupgeometric")
	degrees := fs.String("degrees", "1/1,9/8,5/4,4/3,3/2,5/3,15/8",
		"comma separated degrees starting at the anchor, reduced into the period")
	period := fs.String("period", "2/1", "period as a ratio, cents or equal steps")
	anchor := fs.Int("anchor", 0, "step of the first degree")
	c := a.newCreateFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := scala.ParseInterval(*period)
	if err != nil {
		return err
	}
	base, err := reduceDegrees(strings.Split(*degrees, ","), p)
	if err != nil {
		return err
	}
	lo, hi, err := c.steps()
	if err != nil {
		return err
	}
	if *anchor < math.MinInt16 || *anchor > math.MaxInt16 {
		return errors.Errorf("anchor %d out of range", *anchor)
	}
	t := tuning.New()
	if err := t.CreateGroupGeometric(base, float32(p.Ratio()), lo, hi, int16(*anchor)); err != nil {
		return err
	}
	return a.finishCreate(fs, c, t)
}

// parse degrees and reduce each into [0, period]
func reduceDegrees(degrees []string, period *scala.Interval) ([]float32, error) {
	base := make([]float32, 0, len(degrees))
	for _, s := range degrees {
		iv, err := scala.ParseInterval(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		base = append(base, float32(iv.Modulo(period).Ratio()))
	}
	return base, nil
}

func runMTS(a *app, args []string) (err error) {
	if err := wantArgs(args, 2, "FILE OUT"); err != nil {
		return err
	}
	t, err := loadTuning(args[0])
	if err != nil {
		return err
	}
	opt, err := a.settings.mtsOptions(t.Name())
	if err != nil {
		return err
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return errors.Wrapf(mts.Write(f, t, opt), "write %s", args[1])
}

func runSend(a *app, args []string) error {
	if err := wantArgs(args, 1, "FILE"); err != nil {
		return err
	}
	t, err := loadTuning(args[0])
	if err != nil {
		return err
	}
	opt, err := a.settings.mtsOptions(t.Name())
	if err != nil {
		return err
	}

	drv, err := driver.New()
	if err != nil {
		return err
	}
	defer drv.Close()
	outs, err := drv.Outs()
	if err != nil {
		return err
	}
	n := a.settings.MidiOutPortNumber
	if n < 0 || n >= len(outs) {
		return errors.Errorf("MIDI output port index %d out of range [%d, %d)", n, 0, len(outs))
	}
	out := outs[n]
	if err := out.Open(); err != nil {
		return err
	}
	defer out.Close()
	if err := mts.Write(out, t, opt); err != nil {
		return err
	}
	a.logger.Info("sent tuning", slog.String("name", t.Name()), slog.String("port", out.String()))
	return nil
}

func runPorts(a *app, args []string) error {
	if err := wantArgs(args, 0, ""); err != nil {
		return err
	}
	drv, err := driver.New()
	if err != nil {
		return err
	}
	defer drv.Close()
	outs, err := drv.Outs()
	if err != nil {
		return err
	}
	for i, out := range outs {
		fmt.Fprintf(a.stdout, "%d\t%s\n", i, out.String())
	}
	return nil
}
