package pkg

import (
	"fmt"
	gio "io"
	"os"
	"sort"
	"strconv"

	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KinKir/eyegrade/pkg/classifier"
	"github.com/KinKir/eyegrade/pkg/io"
)

type NoopWriter struct{}

func (x NoopWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func printDataErrors(errors []io.DataError) {
	for _, err := range errors {
		log.Error().Msgf("Error parsing data at line %d: %s", err.Line, err.Error)
	}
}

// Test evaluates a persisted classifier on a data file laid out like its training data.
func Test(modelFileName, metadataFileName, inputFileName, outputFileName string) error {
	if metadataFileName == "" {
		metadataFileName = defaultMetadataFile(modelFileName)
	}
	metaData, err := io.LoadMetadata(metadataFileName)
	if err != nil {
		return err
	}

	_, data, dataErrors, err := io.LoadData(io.DataParameters{DataFile: inputFileName}, metaData)
	if err != nil {
		return fmt.Errorf("error loading data from %s: %w", inputFileName, err)
	}
	printDataErrors(dataErrors)
	if len(data) == 0 {
		return fmt.Errorf("no data to test in %s", inputFileName)
	}

	c := classifier.NewPatternClassifier(metaData.NumClasses,
		classifier.PrecomputedExtractor{Length: metaData.FeatureCount()}, nil)
	if err := c.Load(modelFileName); err != nil {
		return err
	}
	_, err = testInternal(c, data, outputFileName)
	return err
}

// evaluation holds the outcome of classifying a labelled data set.
type evaluation struct {
	// counts is indexed [actual][predicted]
	counts   *mat.Dense
	accuracy float64
}

// confusionMatrix returns counts with every column normalized to sum one, so
// that column p holds the distribution of actual classes given prediction p.
// Classes never predicted keep full confidence in the prediction.
func (e *evaluation) confusionMatrix() [][]float64 {
	n, _ := e.counts.Dims()
	result := make([][]float64, n)
	for i := range result {
		result[i] = make([]float64, n)
	}
	for predicted := 0; predicted < n; predicted++ {
		column := mat.Col(nil, predicted, e.counts)
		total := floats.Sum(column)
		for actual := 0; actual < n; actual++ {
			switch {
			case total > 0:
				result[actual][predicted] = column[actual] / total
			case actual == predicted:
				result[actual][predicted] = 1
			}
		}
	}
	return result
}

type classificationEvaluator struct {
	numClasses   int
	metrics      map[string]*stats.ClassMetrics
	counts       *mat.Dense
	correct      []float64
	outputWriter gio.Writer
}

func newClassificationEvaluator(numClasses int, outputWriter gio.Writer) *classificationEvaluator {
	return &classificationEvaluator{
		numClasses:   numClasses,
		metrics:      map[string]*stats.ClassMetrics{},
		counts:       mat.NewDense(numClasses, numClasses, nil),
		outputWriter: outputWriter,
	}
}

func (c *classificationEvaluator) EvaluatePrediction(predicted int, record *io.DataRecord) {
	fmt.Fprintf(c.outputWriter, "%d,%d\n", record.Label, predicted)

	label, predictedClass := strconv.Itoa(record.Label), strconv.Itoa(predicted)
	labelClassMetrics, ok := c.metrics[label]
	if !ok {
		labelClassMetrics = stats.NewMetricCounter()
		c.metrics[label] = labelClassMetrics
	}
	predictedClassMetrics, ok := c.metrics[predictedClass]
	if !ok {
		predictedClassMetrics = stats.NewMetricCounter()
		c.metrics[predictedClass] = predictedClassMetrics
	}

	if record.Label == predicted {
		labelClassMetrics.IncTruePos()
		c.correct = append(c.correct, 1)
	} else {
		labelClassMetrics.IncFalseNeg()
		predictedClassMetrics.IncFalsePos()
		c.correct = append(c.correct, 0)
	}

	if inRange(record.Label, c.numClasses) && inRange(predicted, c.numClasses) {
		c.counts.Set(record.Label, predicted, c.counts.At(record.Label, predicted)+1)
	} else {
		log.Warn().Int("Label", record.Label).Int("Predicted", predicted).Msg("Class outside the confusion matrix")
	}
}

func (c *classificationEvaluator) LogMetrics() {
	// Sort class names for deterministic output
	sortedClasses := sortClasses(c.metrics)
	for _, class := range sortedClasses {
		result := c.metrics[class]
		log.Info().Str("Class", class).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("TN", result.TrueNeg).
			Int("FN", result.FalseNeg).
			Float64("Precision", float64(result.Precision())).
			Float64("Recall", float64(result.Recall())).
			Float64("F1", float64(result.F1Score())).
			Msg("")
	}

	macroF1, microF1 := computeOverallF1(c.metrics)
	log.Info().Float64("MacroF1", macroF1).Float64("MicroF1", microF1).Float64("Accuracy", c.Accuracy()).Msg("")
}

func (c *classificationEvaluator) Accuracy() float64 {
	if len(c.correct) == 0 {
		return 0
	}
	return stat.Mean(c.correct, nil)
}

func (c *classificationEvaluator) Evaluation() *evaluation {
	return &evaluation{counts: c.counts, accuracy: c.Accuracy()}
}

func inRange(class, numClasses int) bool {
	return class >= 0 && class < numClasses
}

func testInternal(c *classifier.PatternClassifier, data []*io.DataRecord, outputFileName string) (*evaluation, error) {
	var outputWriter gio.Writer
	if outputFileName != "" {
		outputFile, err := os.Create(outputFileName)
		if err != nil {
			return nil, fmt.Errorf("error opening output file %s: %w", outputFileName, err)
		}
		defer outputFile.Close()
		outputWriter = outputFile
	} else {
		outputWriter = NoopWriter{}
	}

	evaluator := newClassificationEvaluator(c.NumClasses, outputWriter)
	for _, record := range data {
		predicted, err := c.Classify(toSample(record))
		if err != nil {
			log.Error().Err(err).Int("Line", record.Line).Msg("Error classifying record")
			continue
		}
		evaluator.EvaluatePrediction(predicted, record)
	}
	evaluator.LogMetrics()
	return evaluator.Evaluation(), nil
}

// computeOverallF1 returns the macro and micro averaged F1 scores.
func computeOverallF1(metrics map[string]*stats.ClassMetrics) (float64, float64) {
	macroF1 := 0.0
	for _, metric := range metrics {
		macroF1 += float64(metric.F1Score())
	}
	macroF1 /= float64(len(metrics))

	micro := stats.NewMetricCounter()
	for _, result := range metrics {
		micro.TruePos += result.TruePos
		micro.FalsePos += result.FalsePos
		micro.FalseNeg += result.FalseNeg
		micro.TrueNeg += result.TrueNeg
	}
	return macroF1, float64(micro.F1Score())
}

func sortClasses(metrics map[string]*stats.ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}

func toSample(record *io.DataRecord) *classifier.Sample {
	return classifier.NewLabeledSample(record.Features, record.Label)
}

func defaultMetadataFile(modelFileName string) string {
	return modelFileName + ".json"
}
