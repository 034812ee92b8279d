package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v2"

	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/internal/plotting"
	"github.com/RossDeVito/AutoML-PRS/metrics"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
	"github.com/RossDeVito/AutoML-PRS/pkg/log"
	"github.com/RossDeVito/AutoML-PRS/prs"
)

type fitFlags struct {
	data        string
	label       string
	estimator   string
	task        string
	params      string
	variantSets string
	covariates  []string
	threshold   string
	valFrac     float64
	seed        uint64
	nPartitions int
	predictions string
	plotDir     string
	verbose     bool
}

func newFitCommand() *cobra.Command {
	flags := &fitFlags{}

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one estimator configuration on a CSV dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(flags)
		},
	}

	cmd.Flags().StringVar(&flags.data, "data", "", "CSV file with a header row and the label column")
	cmd.Flags().StringVar(&flags.label, "label", "phenotype", "name of the label column")
	cmd.Flags().StringVar(&flags.estimator, "estimator", "LGBMEstimator", "estimator variant to fit")
	cmd.Flags().StringVar(&flags.task, "task", "regression", "task: regression, classification, or ranking")
	cmd.Flags().StringVar(&flags.params, "params", "", "YAML file with hyperparameters (defaults from the search space)")
	cmd.Flags().StringVar(&flags.variantSets, "variant-sets", "", "JSON file mapping threshold keys to variant column lists")
	cmd.Flags().StringSliceVar(&flags.covariates, "covariates", nil, "covariate column names")
	cmd.Flags().StringVar(&flags.threshold, "threshold", "", "p-value threshold key for MultiThresh variants")
	cmd.Flags().Float64Var(&flags.valFrac, "val-frac", 0.1, "validation fraction")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&flags.nPartitions, "n-partitions", 0, "partition count for the NPart variants")
	cmd.Flags().StringVar(&flags.predictions, "predictions", "", "write training-set predictions to this CSV file")
	cmd.Flags().StringVar(&flags.plotDir, "plot-dir", "", "write diagnostic plots to this directory")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "enable debug logging and progress output")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runFit(flags *fitFlags) error {
	level := log.LevelInfo
	if flags.verbose {
		level = log.LevelDebug
	}
	log.SetLoggerProvider(log.NewConsoleProvider(os.Stderr, level))
	logger := log.GetLoggerWithName("cli.fit")

	table, y, err := loadCSV(flags.data, flags.label)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded",
		log.SamplesKey, table.NumRows(),
		log.FeaturesKey, table.NumCols(),
	)

	task, err := prs.ParseTask(flags.task)
	if err != nil {
		return err
	}

	params, err := buildParams(flags)
	if err != nil {
		return err
	}

	opts := []prs.EstimatorOption{prs.WithParams(params)}
	if flags.verbose {
		opts = append(opts, prs.WithVerbose(1))
	}
	estimator, err := buildEstimator(flags.estimator, task, opts)
	if err != nil {
		return err
	}

	fitOpts := []prs.FitOption{
		prs.WithValFrac(flags.valFrac),
		prs.WithSeed(flags.seed),
	}
	if flags.variantSets != "" {
		sets, err := loadVariantSets(flags.variantSets)
		if err != nil {
			return err
		}
		fitOpts = append(fitOpts, prs.WithVariantSets(sets, flags.covariates))
	}

	seconds, err := estimator.Fit(table, y, fitOpts...)
	if err != nil {
		return err
	}
	logger.Info("fit complete",
		log.ModelNameKey, estimator.Name(),
		log.DurationSecondsKey, seconds,
	)

	pred, err := estimator.Predict(table)
	if err != nil {
		return err
	}
	if err := reportMetrics(logger, task, y, pred); err != nil {
		return err
	}

	if flags.predictions != "" {
		if err := writePredictions(flags.predictions, pred); err != nil {
			return err
		}
		logger.Info("predictions written", "path", flags.predictions)
	}
	if flags.plotDir != "" {
		if err := writePlots(flags.plotDir, y, pred, estimator.History()); err != nil {
			return err
		}
		logger.Info("plots written", "path", flags.plotDir)
	}
	return nil
}

// buildParams merges the variant's search-space defaults, the YAML
// params file, and the threshold/partition flags.
func buildParams(flags *fitFlags) (map[string]interface{}, error) {
	params := prs.InitParams(searchSpaceFor(flags.estimator))

	if flags.params != "" {
		raw, err := os.ReadFile(flags.params)
		if err != nil {
			return nil, errors.Wrap(err, "params file")
		}
		overrides := map[string]interface{}{}
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return nil, errors.Wrap(err, "params file")
		}
		for k, v := range overrides {
			params[k] = v
		}
	}

	if flags.threshold != "" {
		params["filter_threshold"] = flags.threshold
	}
	if flags.nPartitions > 0 {
		params["n_partitions"] = flags.nPartitions
	}
	return params, nil
}

func searchSpaceFor(name string) map[string]prs.ParamDomain {
	switch name {
	case "ElasticNetEstimator", "ElasticNetEstimatorMultiThresh",
		"NPartElasticNetEstimator", "NPartElasticNetEstimatorMultiThresh":
		return prs.ElasticNetSearchSpace()
	case "SGDEstimator", "SGDEstimatorMultiThresh":
		return prs.SGDSearchSpace()
	default:
		return prs.LGBMSearchSpace()
	}
}

func buildEstimator(name string, task prs.Task, opts []prs.EstimatorOption) (*prs.Estimator, error) {
	switch name {
	case "LGBMEstimator":
		return prs.NewLGBMEstimator(task, opts...)
	case "LGBMEstimatorMultiThresh":
		return prs.NewLGBMEstimatorMultiThresh(task, opts...)
	case "ElasticNetEstimator":
		return prs.NewElasticNetEstimator(task, opts...)
	case "ElasticNetEstimatorMultiThresh":
		return prs.NewElasticNetEstimatorMultiThresh(task, opts...)
	case "NPartElasticNetEstimator":
		return prs.NewNPartElasticNetEstimator(task, opts...)
	case "NPartElasticNetEstimatorMultiThresh":
		return prs.NewNPartElasticNetEstimatorMultiThresh(task, opts...)
	case "SGDEstimator":
		return prs.NewSGDEstimator(task, opts...)
	case "SGDEstimatorMultiThresh":
		return prs.NewSGDEstimatorMultiThresh(task, opts...)
	default:
		return nil, errors.NewValueError("cli.fit", "unknown estimator: "+name)
	}
}

// loadCSV reads a CSV with a header row into an eager table, pulling the
// label column out as the target vector.
func loadCSV(path, label string) (dataset.Table, *mat.VecDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open data file")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(err, "read data file")
	}
	if len(records) < 2 {
		return nil, nil, errors.NewModelError("cli.loadCSV", "no data rows", errors.ErrEmptyData)
	}

	header := records[0]
	labelIdx := -1
	for i, name := range header {
		if name == label {
			labelIdx = i
			break
		}
	}
	if labelIdx == -1 {
		return nil, nil, errors.NewLookupError("cli.loadCSV", label)
	}

	cols := make([]string, 0, len(header)-1)
	for i, name := range header {
		if i != labelIdx {
			cols = append(cols, name)
		}
	}

	n := len(records) - 1
	data := mat.NewDense(n, len(cols), nil)
	y := mat.NewVecDense(n, nil)
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, nil, errors.NewDimensionError("cli.loadCSV", len(header), len(record), 1)
		}
		col := 0
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %d column %q", i+1, header[j])
			}
			if j == labelIdx {
				y.SetVec(i, v)
			} else {
				data.Set(i, col, v)
				col++
			}
		}
	}

	table, err := dataset.NewEagerTable(cols, data)
	if err != nil {
		return nil, nil, err
	}
	return table, y, nil
}

func loadVariantSets(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "variant sets file")
	}
	sets := map[string][]string{}
	if err := json.Unmarshal(raw, &sets); err != nil {
		return nil, errors.Wrap(err, "variant sets file")
	}
	return sets, nil
}

func reportMetrics(logger log.Logger, task prs.Task, y, pred *mat.VecDense) error {
	switch task {
	case prs.TaskClassification:
		auc, err := metrics.AUC(y, pred)
		if err != nil {
			return err
		}
		logloss, err := metrics.BinaryLogLoss(y, pred)
		if err != nil {
			return err
		}
		logger.Info("training metrics", "auc", auc, log.LossKey, logloss)
	case prs.TaskRanking:
		ndcg, err := metrics.NDCG(y, pred, -1)
		if err != nil {
			return err
		}
		logger.Info("training metrics", "ndcg", ndcg)
	default:
		r2, err := metrics.R2Score(y, pred)
		if err != nil {
			return err
		}
		rmse, err := metrics.RMSE(y, pred)
		if err != nil {
			return err
		}
		logger.Info("training metrics", log.R2ScoreKey, r2, "rmse", rmse)
	}
	return nil
}

func writePredictions(path string, pred *mat.VecDense) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "predictions file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"prediction"}); err != nil {
		return errors.Wrap(err, "predictions file")
	}
	for i := 0; i < pred.Len(); i++ {
		if err := w.Write([]string{strconv.FormatFloat(pred.AtVec(i), 'g', -1, 64)}); err != nil {
			return errors.Wrap(err, "predictions file")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "predictions file")
}

func writePlots(dir string, y, pred *mat.VecDense, history map[string][]float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "plot directory")
	}
	if err := plotting.PredictionScatter(y, pred, filepath.Join(dir, "predictions.png")); err != nil {
		return err
	}
	if len(history) > 0 {
		if err := plotting.TrainingCurve(history, filepath.Join(dir, "training_curve.png")); err != nil {
			return err
		}
	}
	return nil
}
