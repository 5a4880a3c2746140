package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"symvm/internal/config"
	"symvm/internal/interp"
	"symvm/internal/llm"
	"symvm/internal/oracle"
	"symvm/internal/resolve"
	"symvm/internal/vm"
)

var (
	entryPoint string
	strategy   string
	maxSteps   int
	language   string
)

var runCmd = &cobra.Command{
	Use:   "run [program.json]",
	Short: "Execute a JSON-encoded IR program",
	Long: `Loads a flat instruction list from a JSON file and executes it.

Calls to functions with no modeled body are resolved per --strategy:
"symbolic" answers with a fresh symbolic placeholder, "llm" asks the
configured provider for a plausible concrete result (falling back to
symbolic on any failure). Instructions no local rule covers go to the
LLM oracle; an oracle failure aborts the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runProgram,
}

func init() {
	runCmd.Flags().StringVarP(&entryPoint, "entry", "e", "", "Entry point label (default: first block)")
	runCmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Unresolved-call strategy: symbolic or llm")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Maximum executed instructions")
	runCmd.Flags().StringVarP(&language, "language", "l", "", "Source language tag passed to the LLM resolver")
}

func runProgram(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if strategy != "" {
		cfg.Execution.UnresolvedCallStrategy = strategy
	}
	if maxSteps > 0 {
		cfg.Execution.MaxSteps = maxSteps
	}
	if language != "" {
		cfg.Execution.SourceLanguage = language
	}
	if entryPoint != "" {
		cfg.Execution.EntryPoint = entryPoint
	}

	insts, err := LoadProgram(args[0])
	if err != nil {
		return err
	}
	program := interp.BuildProgram(insts)

	client, err := llm.NewClient(cfg.LLM, cfg.LLMTimeout())
	if err != nil {
		return err
	}

	var resolver resolve.Resolver
	switch cfg.Execution.UnresolvedCallStrategy {
	case "llm":
		resolver = resolve.NewPlausibleResolver(client, cfg.Execution.SourceLanguage, logger)
	case "", "symbolic":
		resolver = resolve.NewSymbolicResolver(logger)
	default:
		return fmt.Errorf("unknown unresolved-call strategy: %q", cfg.Execution.UnresolvedCallStrategy)
	}

	backend := oracle.NewLLMBackend(client, logger)

	it := interp.New(backend, resolver, interp.Config{
		MaxSteps:   cfg.Execution.MaxSteps,
		EntryPoint: cfg.Execution.EntryPoint,
	}, logger)
	if verbose {
		it.OnStep = printStep
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, stats, err := it.Run(ctx, program)
	printSummary(state, stats)
	return err
}

var (
	stepColor   = color.New(color.FgCyan)
	oracleColor = color.New(color.FgYellow)
	localColor  = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

func printStep(ev interp.StepEvent) {
	tier := localColor.Sprint("local")
	if ev.UsedOracle {
		tier = oracleColor.Sprint("oracle")
	}
	stepColor.Printf("[%3d] ", ev.Step)
	fmt.Printf("%s:%d  %s  (%s)\n", ev.Label, ev.IP, ev.Instruction, tier)

	u := ev.Update
	for reg, val := range u.RegisterWrites {
		fmt.Printf("      %s = %s\n", reg, vm.Format(vm.DecodeValue(val)))
	}
	for name, val := range u.VarWrites {
		fmt.Printf("      $%s = %s\n", name, vm.Format(vm.DecodeValue(val)))
	}
	for _, hw := range u.HeapWrites {
		fmt.Printf("      heap[%s].%s = %s\n", hw.ObjAddr, hw.Field, vm.Format(vm.DecodeValue(hw.Value)))
	}
	for _, obj := range u.NewObjects {
		fmt.Printf("      new %s @ %s\n", obj.TypeHint, obj.Addr)
	}
	if u.NextLabel != "" {
		fmt.Printf("      -> %s\n", u.NextLabel)
	}
	if u.PathCondition != "" {
		fmt.Printf("      path: %s\n", u.PathCondition)
	}
	if u.Reasoning != "" {
		dimColor.Printf("      %s\n", u.Reasoning)
	}
}

func printSummary(state *vm.State, stats *interp.Stats) {
	bold := color.New(color.Bold)

	bold.Println("\n=== final state ===")
	root := state.CallStack[0]
	if len(root.Locals) > 0 {
		fmt.Println("locals:")
		for _, name := range sortedKeys(root.Locals) {
			fmt.Printf("  %s = %s\n", name, vm.Format(root.Locals[name]))
		}
	}
	if len(state.Heap) > 0 {
		fmt.Println("heap:")
		addrs := make([]string, 0, len(state.Heap))
		for addr := range state.Heap {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		for _, addr := range addrs {
			obj := state.Heap[addr]
			fmt.Printf("  %s (%s):\n", addr, obj.TypeHint)
			for _, field := range sortedKeys(obj.Fields) {
				fmt.Printf("    .%s = %s\n", field, vm.Format(obj.Fields[field]))
			}
		}
	}
	if len(state.PathConditions) > 0 {
		fmt.Println("path conditions:")
		for _, pc := range state.PathConditions {
			fmt.Printf("  %s\n", pc)
		}
	}
	fmt.Printf("%d steps, %d oracle calls, %d heap objects, %d symbols, %d closures\n",
		stats.Steps, stats.OracleCalls, stats.HeapObjects, stats.SymbolicCount, stats.Closures)
}

func sortedKeys(m map[string]vm.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
