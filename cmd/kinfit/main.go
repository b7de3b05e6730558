package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/kinfit/internal/config"
	"github.com/san-kum/kinfit/internal/fit"
	"github.com/san-kum/kinfit/internal/integrate"
	"github.com/san-kum/kinfit/internal/model"
	"github.com/san-kum/kinfit/internal/scan"
	"github.com/san-kum/kinfit/internal/sim"
	"github.com/san-kum/kinfit/internal/store"
	"github.com/san-kum/kinfit/internal/table"
	"github.com/san-kum/kinfit/internal/tui"
	"github.com/san-kum/kinfit/internal/viz"
)

var (
	dataDir    string
	configFile string
	backend    string
	atol       float64
	rtol       float64
	tEnd       float64
	steps      int
	tolerance  float64
	relNorm    bool
	dataFile   string
	fitSteady  bool
	fitMethod  string
	params     []string
	live       bool
	save       bool
	plotOut    string
	scanParam  string
	scanFrom   float64
	scanTo     float64
	scanPoints int
	scanLog    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kinfit",
		Short: "kinetic model simulation and parameter fitting",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kinfit", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "integrator backend (bdf|dopri|rk4)")
	rootCmd.PersistentFlags().Float64Var(&atol, "atol", 0, "absolute tolerance")
	rootCmd.PersistentFlags().Float64Var(&rtol, "rtol", 0, "relative tolerance")

	simulateCmd := &cobra.Command{
		Use:   "simulate [preset]",
		Short: "integrate a model over a time course",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&tEnd, "t-end", 10.0, "end time")
	simulateCmd.Flags().IntVar(&steps, "steps", 0, "output steps (default resolution if 0)")
	simulateCmd.Flags().BoolVar(&save, "save", false, "persist the run")

	steadyCmd := &cobra.Command{
		Use:   "steadystate [preset]",
		Short: "drive a model to steady state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSteadyState,
	}
	steadyCmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "convergence tolerance")
	steadyCmd.Flags().BoolVar(&relNorm, "rel-norm", false, "relative convergence norm")
	steadyCmd.Flags().BoolVar(&save, "save", false, "persist the run")

	fitCmd := &cobra.Command{
		Use:   "fit [preset]",
		Short: "fit model parameters to experimental data",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFit,
	}
	fitCmd.Flags().StringVar(&dataFile, "data-file", "", "experimental data csv")
	fitCmd.Flags().BoolVar(&fitSteady, "steady-state", false, "fit against steady-state data")
	fitCmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "steady-state tolerance")
	fitCmd.Flags().BoolVar(&relNorm, "rel-norm", false, "relative convergence norm")
	fitCmd.Flags().StringVar(&fitMethod, "method", "", "minimizer (neldermead|lbfgs|gradient|grid)")
	fitCmd.Flags().StringArrayVar(&params, "param", nil, "initial guess, e.g. --param k1=0.5")
	fitCmd.Flags().BoolVar(&live, "live", false, "live progress view")
	fitCmd.MarkFlagRequired("data-file")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().StringVar(&plotOut, "out", "", "write an image (png or svg by extension) instead of a terminal plot")

	scanCmd := &cobra.Command{
		Use:   "scan [preset]",
		Short: "sweep a parameter and record the steady state at each value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().StringVar(&scanParam, "param", "", "parameter to sweep")
	scanCmd.Flags().Float64Var(&scanFrom, "from", 0, "range start")
	scanCmd.Flags().Float64Var(&scanTo, "to", 0, "range end")
	scanCmd.Flags().IntVar(&scanPoints, "points", 20, "number of scan points")
	scanCmd.Flags().BoolVar(&scanLog, "log", false, "geometric spacing")
	scanCmd.Flags().BoolVar(&save, "save", false, "persist the scan")
	scanCmd.MarkFlagRequired("param")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  runList,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list model presets",
		Run: func(cmd *cobra.Command, args []string) {
			names := config.ListPresets()
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(simulateCmd, steadyCmd, fitCmd, scanCmd, plotCmd, listCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

// loadSetup resolves config file and preset name into a config and model.
func loadSetup(args []string) (*config.Config, *model.Model, string, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, nil, "", err
		}
		cfg = loaded
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if atol > 0 {
		cfg.Atol = atol
	}
	if rtol > 0 {
		cfg.Rtol = rtol
	}

	name := "model"
	mc := cfg.Model
	if len(args) == 1 {
		preset := config.GetPreset(args[0])
		if preset == nil {
			return nil, nil, "", fmt.Errorf("unknown preset %q", args[0])
		}
		mc = *preset
		name = args[0]
	} else if len(mc.Species) == 0 {
		return nil, nil, "", fmt.Errorf("no model: pass a preset name or a config file with a model section")
	}

	m, err := config.BuildModel(mc)
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, m, name, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, m, name, err := loadSetup(args)
	if err != nil {
		return err
	}

	s, err := sim.NewWithOptions(m, nil, cfg.Constructor(), cfg.IntegratorOptions())
	if err != nil {
		return err
	}

	points := make([]float64, integrate.DefaultSteps)
	if steps > 0 {
		points = make([]float64, steps+1)
	}
	for i := range points {
		points[i] = tEnd * float64(i) / float64(len(points)-1)
	}

	concs, fluxes := s.SimulateTimeCourse(points).FullConcsAndFluxes()
	if concs == nil {
		return fmt.Errorf("integration failed")
	}

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("%s (t=0..%g)", name, tEnd)))
	fmt.Println(viz.GraphStyle.Render(viz.ASCII(concs, 12, "concentrations")))

	if save {
		return saveRun(cfg, name, "timecourse", concs, fluxes, nil)
	}
	return nil
}

func runSteadyState(cmd *cobra.Command, args []string) error {
	cfg, m, name, err := loadSetup(args)
	if err != nil {
		return err
	}

	s, err := sim.NewWithOptions(m, nil, cfg.Constructor(), cfg.IntegratorOptions())
	if err != nil {
		return err
	}
	s.SteadyStateOpts = cfg.SteadyStateOptions()
	s.SteadyStateOpts.Tolerance = tolerance
	s.SteadyStateOpts.RelNorm = relNorm

	concs, fluxes := s.SimulateToSteadyState().FullConcsAndFluxes()
	if concs == nil {
		return fmt.Errorf("no steady state found within bounds")
	}

	fmt.Println(viz.TitleStyle.Render(name + " steady state"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for j, sp := range concs.Columns {
		fmt.Fprintf(w, "%s\t%.8g\n", sp, concs.Data[0][j])
	}
	for j, rx := range fluxes.Columns {
		fmt.Fprintf(w, "%s\t%.8g\n", rx, fluxes.Data[0][j])
	}
	w.Flush()

	if save {
		return saveRun(cfg, name, "steadystate", concs, fluxes, nil)
	}
	return nil
}

func runFit(cmd *cobra.Command, args []string) error {
	cfg, m, name, err := loadSetup(args)
	if err != nil {
		return err
	}

	p0, err := parseGuess(params)
	if err != nil {
		return err
	}
	if len(p0) == 0 {
		return fmt.Errorf("no initial guess: pass at least one --param name=value")
	}

	method := cfg.Fit.Method
	if fitMethod != "" {
		method = fitMethod
	}
	minimize := fit.Minimizer(fit.MethodFromString(method), cfg.Fit.LowerBound, cfg.Fit.UpperBound)
	if method == "grid" {
		minimize = fit.GridSearch(20, cfg.Fit.LowerBound, cfg.Fit.UpperBound)
	}
	opts := fit.Options{
		Backend:  cfg.Constructor(),
		Minimize: minimize,
	}
	opts.SteadyState = cfg.SteadyStateOptions()
	opts.SteadyState.Tolerance = tolerance
	opts.SteadyState.RelNorm = relNorm

	run := func() map[string]float64 {
		if fitSteady {
			data, err := loadSeries(dataFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, viz.ErrorStyle.Render(err.Error()))
				return nil
			}
			return fit.SteadyState(m, p0, data, opts)
		}
		data, err := loadFrame(dataFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, viz.ErrorStyle.Render(err.Error()))
			return nil
		}
		return fit.TimeCourse(m, p0, data, opts)
	}

	var fitted map[string]float64
	if live {
		fitted, err = tui.RunFit(fit.ParamNames(p0), func(observe func([]float64, float64)) map[string]float64 {
			opts.Observe = observe
			return run()
		})
		if err != nil {
			return err
		}
	} else {
		fitted = run()
	}

	if fitted == nil {
		return fmt.Errorf("fit aborted")
	}

	fmt.Println(viz.TitleStyle.Render(name + " fitted parameters"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	failed := false
	for _, pname := range fit.ParamNames(p0) {
		v := fitted[pname]
		if math.IsNaN(v) {
			failed = true
		}
		fmt.Fprintf(w, "%s\t%.8g\n", pname, v)
	}
	w.Flush()
	if failed {
		fmt.Println(viz.ErrorStyle.Render("minimizer did not converge"))
	}

	return saveRun(cfg, name, "fit", nil, nil, fitted)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, m, name, err := loadSetup(args)
	if err != nil {
		return err
	}

	frame, err := scan.SteadyState(cmd.Context(), m, scanParam, scanFrom, scanTo, scanPoints, scan.Options{
		Backend:     cfg.Constructor(),
		Solver:      cfg.IntegratorOptions(),
		SteadyState: cfg.SteadyStateOptions(),
		Log:         scanLog,
	})
	if err != nil {
		return err
	}
	frame.IndexName = scanParam

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("%s steady states over %s", name, scanParam)))
	fmt.Println(viz.GraphStyle.Render(viz.ASCII(frame, 12, "steady-state concentrations and fluxes")))

	if save {
		return saveRun(cfg, name, "scan", frame, nil, nil)
	}
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	frame, err := st.LoadFrame(args[0], "concentrations")
	if err != nil {
		return err
	}
	if plotOut != "" {
		if err := viz.Export(plotOut, frame, args[0]); err != nil {
			return err
		}
		fmt.Println(viz.SuccessStyle.Render("wrote " + plotOut))
		return nil
	}
	fmt.Println(viz.GraphStyle.Render(viz.ASCII(frame, 15, args[0])))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	runs, err := store.New(dataDir).List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tkind\tmodel\tbackend\ttimestamp")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.Model, r.Backend, r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func saveRun(cfg *config.Config, name, kind string, concs, fluxes *table.Frame, fitted map[string]float64) error {
	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(store.RunMetadata{
		Kind:    kind,
		Model:   name,
		Backend: cfg.Backend,
		Atol:    cfg.Atol,
		Rtol:    cfg.Rtol,
		Fitted:  fitted,
	}, concs, fluxes)
	if err != nil {
		return err
	}
	fmt.Println(viz.SuccessStyle.Render("saved " + runID))
	return nil
}

func parseGuess(pairs []string) (fit.InitialGuess, error) {
	p0 := make(fit.InitialGuess, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad --param %q, want name=value", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad --param %q: %v", pair, err)
		}
		p0[name] = v
	}
	return p0, nil
}

// loadSeries reads steady-state data: rows of name,value.
func loadSeries(path string) (*table.Series, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(records))
	values := make([]float64, 0, len(records))
	for _, record := range records {
		if len(record) != 2 {
			return nil, fmt.Errorf("%s: want name,value rows", path)
		}
		v, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, err
		}
		labels = append(labels, record[0])
		values = append(values, v)
	}
	return table.NewSeries(labels, values)
}

// loadFrame reads time-course data: a time column plus one column per
// observed variable.
func loadFrame(path string) (*table.Frame, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: want a header and at least one row", path)
	}
	columns := records[0][1:]
	index := make([]float64, 0, len(records)-1)
	data := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, err
			}
		}
		index = append(index, t)
		data = append(data, row)
	}
	return table.NewFrame(index, columns, data)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return csv.NewReader(file).ReadAll()
}
