// Package heap provides an interactive shell over the runtime value heap:
// values can be constructed, aliased, mutated and disposed from a prompt,
// with reference counts and frames visible at every step.
package heap

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/urfave/cli"
	"github.com/vesper-lang/vesper-go/cli/options"
	"github.com/vesper-lang/vesper-go/pkg/config"
	"github.com/vesper-lang/vesper-go/pkg/runtime"
	"github.com/vesper-lang/vesper-go/pkg/runtime/value"
	"github.com/vesper-lang/vesper-go/pkg/services/metrics"
	"go.uber.org/zap"
)

const (
	heapKey             = "heap"
	scopesKey           = "scopes"
	logKey              = "log"
	readlineInstanceKey = "readlineKey"
)

var (
	// ErrMissingParameter is returned when a command lacks a mandatory
	// argument.
	ErrMissingParameter = errors.New("missing argument")
	// ErrInvalidParameter is returned when a command argument cannot be
	// interpreted.
	ErrInvalidParameter = errors.New("can't parse argument")
)

var commands = []cli.Command{
	{
		Name:        "exit",
		Usage:       "Exit the heap prompt",
		Description: "Exit the heap prompt",
		Action:      handleExit,
	},
	{
		Name:        "enter",
		Usage:       "Enter a new scope frame",
		Description: "Enter a new scope frame",
		Action:      handleEnter,
	},
	{
		Name:  "leave",
		Usage: "Exit the innermost scope frame",
		Description: `Exit the innermost scope frame, disposing its bindings in reverse
creation order. Values whose count reaches zero are finalized.`,
		Action: handleLeave,
	},
	{
		Name:      "let",
		Usage:     "Construct an anonymous value and bind it",
		UsageText: `let <name> scalar <value> | let <name> seq [elem...] | let <name> map [key=elem...]`,
		Description: `let <name> scalar <value> | let <name> seq [elem...] | let <name> map [key=elem...]

Elements starting with '@' reference another binding's value, everything
else is an immediate (integers are recognized, the rest stays a string),
example:
> let a scalar 42
> let s seq 1 2 @a`,
		Action: handleLet,
	},
	{
		Name:      "ref",
		Usage:     "Bind another name aliasing an existing value",
		UsageText: `ref <name> <alias>`,
		Description: `ref <name> <alias>

The alias names the same value: mutation through either binding is
visible through the other and the reference count goes up by one.`,
		Action: handleRef,
	},
	{
		Name:      "copy",
		Usage:     "Construct an anonymous copy of a value and bind it",
		UsageText: `copy <name> <newname>`,
		Description: `copy <name> <newname>

Contents are flattened with a per-element copy: the new value never
aliases the container it was built from.`,
		Action: handleCopy,
	},
	{
		Name:      "get",
		Usage:     "Show the value behind a binding",
		UsageText: `get <name>`,
		Action:    handleGet,
	},
	{
		Name:      "set",
		Usage:     "Write a scalar value through a binding",
		UsageText: `set <name> <value>`,
		Action:    handleSet,
	},
	{
		Name:      "append",
		Usage:     "Append an element to a sequence",
		UsageText: `append <name> <elem>`,
		Action:    handleAppend,
	},
	{
		Name:      "iget",
		Usage:     "Show the i-th element of a sequence",
		UsageText: `iget <name> <index>`,
		Action:    handleIndexGet,
	},
	{
		Name:      "iset",
		Usage:     "Replace the i-th element of a sequence",
		UsageText: `iset <name> <index> <elem>`,
		Action:    handleIndexSet,
	},
	{
		Name:      "kget",
		Usage:     "Show the element under a mapping key",
		UsageText: `kget <name> <key>`,
		Action:    handleKeyGet,
	},
	{
		Name:      "kset",
		Usage:     "Store an element under a mapping key",
		UsageText: `kset <name> <key> <elem>`,
		Action:    handleKeySet,
	},
	{
		Name:      "kdel",
		Usage:     "Delete a mapping key",
		UsageText: `kdel <name> <key>`,
		Action:    handleKeyDelete,
	},
	{
		Name:      "khas",
		Usage:     "Check whether a mapping key exists",
		UsageText: `khas <name> <key>`,
		Action:    handleKeyExists,
	},
	{
		Name:      "open",
		Usage:     "Open a file-backed stream value and bind it",
		UsageText: `open <name> <path>`,
		Description: `open <name> <path>

The file is closed when the stream value's count reaches zero, e.g. on
leaving the frame the binding was created in.`,
		Action: handleOpen,
	},
	{
		Name:      "write",
		Usage:     "Write data through a stream binding",
		UsageText: `write <name> <data>`,
		Action:    handleWrite,
	},
	{
		Name:      "refcount",
		Usage:     "Show the reference count of a binding's value",
		UsageText: `refcount <name>`,
		Action:    handleRefcount,
	},
	{
		Name:        "stats",
		Usage:       "Show heap and frame statistics",
		Description: "Show heap and frame statistics",
		Action:      handleStats,
	},
}

var completer *readline.PrefixCompleter

func init() {
	var pcItems []readline.PrefixCompleterInterface
	for _, c := range commands {
		if !c.Hidden {
			pcItems = append(pcItems, readline.PcItem(c.Name))
		}
	}
	completer = readline.NewPrefixCompleter(pcItems...)
}

// NewCommands returns the 'heap' command for the main application.
func NewCommands() []cli.Command {
	cfgFlags := []cli.Flag{
		cli.StringFlag{Name: "config-path, c", Usage: "path to the YAML configuration file"},
		cli.BoolFlag{Name: "debug, d", Usage: "enable debug logging"},
	}
	return []cli.Command{{
		Name:        "heap",
		Usage:       "Start the interactive heap prompt",
		Description: "Start the interactive heap prompt",
		Action:      startShell,
		Flags:       cfgFlags,
	}}
}

func startShell(ctx *cli.Context) error {
	cfg, err := config.LoadFile(ctx.String("config-path"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)
	prometheus.Start()
	pprof.Start()
	defer prometheus.ShutDown()
	defer pprof.ShutDown()

	sh, err := New(log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return sh.Run()
}

// Shell is the interactive heap prompt.
type Shell struct {
	shell *cli.App
}

// New returns a new Shell over a fresh heap with one open frame.
func New(log *zap.Logger) (*Shell, error) {
	return NewWithConfig(log, &readline.Config{
		Prompt: "\033[32mVESPER-HEAP >\033[0m ",
	})
}

// NewWithConfig returns a new Shell using the provided readline config.
func NewWithConfig(log *zap.Logger, c *readline.Config) (*Shell, error) {
	if c.AutoComplete == nil {
		// Autocomplete commands on TAB.
		c.AutoComplete = completer
	}
	l, err := readline.NewEx(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	ctl := cli.NewApp()
	ctl.Name = "HEAP CLI"

	// Note: need to set empty `ctl.HelpName` and `ctl.UsageText`, otherwise
	// `filepath.Base(os.Args[0])` will be used which is `vesper-go`.
	ctl.HelpName = ""
	ctl.UsageText = ""

	ctl.Writer = l.Stdout()
	ctl.ErrWriter = l.Stderr()
	ctl.Version = config.Version
	ctl.Usage = "Interactive heap prompt"

	// Override default error handler in order not to exit on error.
	ctl.ExitErrHandler = func(context *cli.Context, err error) {}

	ctl.Commands = commands

	h := runtime.NewHeap(log)
	scopes := runtime.NewScopes(h)
	scopes.EnterFrame()

	ctl.Metadata = map[string]interface{}{
		heapKey:             h,
		scopesKey:           scopes,
		logKey:              log,
		readlineInstanceKey: l,
	}
	return &Shell{shell: ctl}, nil
}

func getHeapFromContext(app *cli.App) *runtime.Heap {
	return app.Metadata[heapKey].(*runtime.Heap)
}

func getScopesFromContext(app *cli.App) *runtime.Scopes {
	return app.Metadata[scopesKey].(*runtime.Scopes)
}

func getReadlineInstanceFromContext(app *cli.App) *readline.Instance {
	return app.Metadata[readlineInstanceKey].(*readline.Instance)
}

func writeErr(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", err)
}

// Run waits for user input from Stdin and executes the passed command.
func (s *Shell) Run() error {
	l := getReadlineInstanceFromContext(s.shell)
	defer l.Close()
	for {
		line, err := l.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil // OK, stop execution.
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err) // Critical error, stop execution.
		}

		args, err := shellquote.Split(line)
		if err != nil {
			writeErr(s.shell.ErrWriter, fmt.Errorf("failed to parse arguments: %w", err))
			continue // Not a critical error, continue execution.
		}

		err = s.shell.Run(append([]string{"heap"}, args...))
		if err != nil {
			writeErr(s.shell.ErrWriter, err) // Various command/flags parsing errors and execution errors.
		}
	}
}

func handleExit(c *cli.Context) error {
	// Closing the readline instance makes the Run loop see io.EOF on the
	// next read and return cleanly.
	l := getReadlineInstanceFromContext(c.App)
	l.Close()
	return nil
}

func handleEnter(c *cli.Context) error {
	getScopesFromContext(c.App).EnterFrame()
	return handleStats(c)
}

func handleLeave(c *cli.Context) error {
	s := getScopesFromContext(c.App)
	if s.Depth() == 1 {
		return errors.New("can't leave the top-level frame")
	}
	if err := s.ExitFrame(); err != nil {
		return err
	}
	return handleStats(c)
}

// parseElem interprets a command argument as an aggregate element:
// '@name' aliases the named binding's value, integers become ints,
// everything else stays a string.
func parseElem(c *cli.Context, s string) (value.Elem, error) {
	if strings.HasPrefix(s, "@") {
		hd, err := getScopesFromContext(c.App).Lookup(s[1:])
		if err != nil {
			return value.Elem{}, err
		}
		return value.RefTo(hd.Ref()), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return value.Make(n), nil
	}
	return value.Make(s), nil
}

func handleLet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	name, variant := args[0], args[1]
	h := getHeapFromContext(c.App)
	s := getScopesFromContext(c.App)

	var hd runtime.Handle
	switch variant {
	case "scalar":
		if len(args) < 3 {
			return ErrMissingParameter
		}
		e, err := parseElem(c, args[2])
		if err != nil {
			return err
		}
		if e.IsRef() {
			return fmt.Errorf("%w: scalar payload can't be a reference", ErrInvalidParameter)
		}
		hd = h.Construct(value.NewScalar(e.Value()))
	case "seq":
		elems := make([]value.Elem, 0, len(args)-2)
		for _, a := range args[2:] {
			e, err := parseElem(c, a)
			if err != nil {
				return err
			}
			elems = append(elems, e)
		}
		hd = h.Construct(value.NewSequence(elems))
	case "map":
		elems := make([]value.MapElement, 0, len(args)-2)
		for _, a := range args[2:] {
			k, v, ok := strings.Cut(a, "=")
			if !ok {
				return fmt.Errorf("%w: want key=elem, got %q", ErrInvalidParameter, a)
			}
			e, err := parseElem(c, v)
			if err != nil {
				return err
			}
			elems = append(elems, value.MapElement{Key: k, Value: e})
		}
		hd = h.Construct(value.NewMappingWithValue(elems))
	default:
		return fmt.Errorf("%w: unknown variant %q", ErrInvalidParameter, variant)
	}
	if err := s.Bind(name, hd); err != nil {
		return err
	}
	return printBinding(c, name)
}

func handleRef(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	s := getScopesFromContext(c.App)
	src, err := s.Lookup(args[0])
	if err != nil {
		return err
	}
	alias, err := h.TakeReference(src.Ref(), src.Kind())
	if err != nil {
		return err
	}
	if err := s.Bind(args[1], alias); err != nil {
		return err
	}
	return printBinding(c, args[1])
}

func handleCopy(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	s := getScopesFromContext(c.App)
	src, err := s.Lookup(args[0])
	if err != nil {
		return err
	}
	cp, err := h.ConstructFrom(src)
	if err != nil {
		return err
	}
	if err := s.Bind(args[1], cp); err != nil {
		return err
	}
	return printBinding(c, args[1])
}

func handleGet(c *cli.Context) error {
	if len(c.Args()) < 1 {
		return ErrMissingParameter
	}
	return printBinding(c, c.Args()[0])
}

func handleSet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	e, err := parseElem(c, args[1])
	if err != nil {
		return err
	}
	if e.IsRef() {
		return fmt.Errorf("%w: scalar payload can't be a reference", ErrInvalidParameter)
	}
	if err := h.WriteScalar(hd, e.Value()); err != nil {
		return err
	}
	return printBinding(c, args[0])
}

func handleAppend(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	e, err := parseElem(c, args[1])
	if err != nil {
		return err
	}
	if err := h.SeqAppend(hd, e); err != nil {
		return err
	}
	return printBinding(c, args[0])
}

func seqIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidParameter, err)
	}
	return i, nil
}

func handleIndexGet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	i, err := seqIndex(args[1])
	if err != nil {
		return err
	}
	e, err := h.IndexGet(hd, i)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, formatElem(h, e))
	return nil
}

func handleIndexSet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 3 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	i, err := seqIndex(args[1])
	if err != nil {
		return err
	}
	e, err := parseElem(c, args[2])
	if err != nil {
		return err
	}
	if err := h.IndexSet(hd, i, e); err != nil {
		return err
	}
	return printBinding(c, args[0])
}

func handleKeyGet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	e, err := h.KeyGet(hd, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, formatElem(h, e))
	return nil
}

func handleKeySet(c *cli.Context) error {
	args := c.Args()
	if len(args) < 3 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	e, err := parseElem(c, args[2])
	if err != nil {
		return err
	}
	if err := h.KeySet(hd, args[1], e); err != nil {
		return err
	}
	return printBinding(c, args[0])
}

func handleKeyDelete(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	if err := h.KeyDelete(hd, args[1]); err != nil {
		return err
	}
	return printBinding(c, args[0])
}

func handleKeyExists(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	ok, err := h.KeyExists(hd, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, ok)
	return nil
}

func handleOpen(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	s := getScopesFromContext(c.App)
	res, err := openFileResource(args[1])
	if err != nil {
		return err
	}
	if err := s.Bind(args[0], h.Construct(value.NewStream(res))); err != nil {
		return err
	}
	return printBinding(c, args[0])
}

func handleWrite(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(args[0])
	if err != nil {
		return err
	}
	return h.StreamOp(hd, func(res value.Resource) error {
		w, ok := res.(io.Writer)
		if !ok {
			return fmt.Errorf("%w: resource is not writable", ErrInvalidParameter)
		}
		_, err := w.Write([]byte(args[1]))
		return err
	})
}

func handleRefcount(c *cli.Context) error {
	if len(c.Args()) < 1 {
		return ErrMissingParameter
	}
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(c.Args()[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, h.RefCount(hd.Ref()))
	return nil
}

func handleStats(c *cli.Context) error {
	h := getHeapFromContext(c.App)
	s := getScopesFromContext(c.App)
	fmt.Fprintf(c.App.Writer, "live values: %d\nframe depth: %d\nframe bindings: %s\n",
		h.Live(), s.Depth(), strings.Join(s.Names(), ", "))
	return nil
}

// formatElem renders an aggregate element, dereferencing ref elements one
// level deep.
func formatElem(h *runtime.Heap, e value.Elem) string {
	if !e.IsRef() {
		return fmt.Sprintf("%v", e.Value())
	}
	p, err := h.Payload(e.Ref())
	if err != nil {
		return fmt.Sprintf("%s (%s)", e, err)
	}
	if sc, ok := p.(*value.Scalar); ok {
		return fmt.Sprintf("%s -> %v", e, sc.Get())
	}
	return fmt.Sprintf("%s -> %s", e, p)
}

func printBinding(c *cli.Context, name string) error {
	h := getHeapFromContext(c.App)
	hd, err := getScopesFromContext(c.App).Lookup(name)
	if err != nil {
		return err
	}
	p, err := h.Payload(hd.Ref())
	if err != nil {
		return err
	}
	switch t := p.(type) {
	case *value.Scalar:
		fmt.Fprintf(c.App.Writer, "%s = %v (refs: %d)\n", name, t.Get(), h.RefCount(hd.Ref()))
	case *value.Sequence:
		parts := make([]string, 0, t.Len())
		for i := 0; i < t.Len(); i++ {
			parts = append(parts, formatElem(h, t.Get(i)))
		}
		fmt.Fprintf(c.App.Writer, "%s = [%s] (refs: %d)\n", name, strings.Join(parts, ", "), h.RefCount(hd.Ref()))
	case *value.Mapping:
		parts := make([]string, 0, t.Len())
		for _, me := range t.Elements() {
			parts = append(parts, fmt.Sprintf("%s=%s", me.Key, formatElem(h, me.Value)))
		}
		fmt.Fprintf(c.App.Writer, "%s = {%s} (refs: %d)\n", name, strings.Join(parts, ", "), h.RefCount(hd.Ref()))
	default:
		fmt.Fprintf(c.App.Writer, "%s = %s (refs: %d)\n", name, p, h.RefCount(hd.Ref()))
	}
	return nil
}
