package pkg

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KinKir/eyegrade/pkg/classifier"
	"github.com/KinKir/eyegrade/pkg/io"
	"github.com/KinKir/eyegrade/pkg/model"
)

type TrainingParameters struct {
	classifier.Params

	// Engine is the name of the classification engine: svm or network
	Engine string

	// NumClasses is the number of classes; 0 infers it from the largest label
	NumClasses int

	// MarkDetector trains a default mark detector, ignoring C and Gamma
	MarkDetector bool

	// HoldOut is the fraction of the training data kept aside for evaluation
	// when there is no test file
	HoldOut float64
}

// Train fits a classifier to the data in trainFile, saves it to outputFileName
// and evaluates it on testFile (or on the training data when testFile is
// empty). The metadata file receives the data layout, the training settings
// and the evaluation confusion matrix.
func Train(trainFile, testFile, outputFileName, metadataFileName, targetColumn string, params TrainingParameters) error {
	metaData, data, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:     trainFile,
		TargetColumn: targetColumn,
	}, nil)
	if err != nil {
		return fmt.Errorf("error reading training data: %w", err)
	}
	printDataErrors(dataErrors)
	if len(data) == 0 {
		return errors.New("no data to train")
	}

	if params.NumClasses == 0 {
		params.NumClasses = inferNumClasses(data)
	}
	c, train, err := newClassifier(metaData, params)
	if err != nil {
		return err
	}

	trainData, testData := data, data
	if testFile == "" && params.HoldOut > 0 {
		if trainData, testData, err = holdOut(data, params.HoldOut, params.Params.Merge().RndSeed); err != nil {
			return err
		}
	}

	samples := make([]*classifier.Sample, len(trainData))
	for i, record := range trainData {
		samples[i] = toSample(record)
	}
	trainingID := uuid.NewString()
	log.Info().Str("TrainingID", trainingID).Str("Engine", params.Engine).
		Int("Samples", len(samples)).Int("Classes", params.NumClasses).Msg("Training")
	if err := train(samples, &params.Params); err != nil {
		return err
	}
	if err := c.Persist(outputFileName); err != nil {
		return err
	}

	if testFile != "" {
		_, testData, dataErrors, err = io.LoadData(io.DataParameters{DataFile: testFile}, metaData)
		if err != nil {
			return fmt.Errorf("error reading test data: %w", err)
		}
		printDataErrors(dataErrors)
	}
	result, err := testInternal(c, testData, "")
	if err != nil {
		return err
	}

	merged := params.Params.Merge()
	if params.MarkDetector {
		merged.C, merged.Gamma = classifier.DefaultMarkC, classifier.DefaultMarkGamma
	}
	metaData.TrainingID = trainingID
	metaData.Engine = c.EngineName()
	metaData.NumClasses = params.NumClasses
	metaData.C, metaData.Gamma = merged.C, merged.Gamma
	metaData.Accuracy = result.accuracy
	metaData.ConfusionMatrix = result.confusionMatrix()

	if metadataFileName == "" {
		metadataFileName = defaultMetadataFile(outputFileName)
	}
	return io.SaveMetadata(metaData, metadataFileName)
}

// newClassifier returns the classifier to train and its training function,
// which differs for mark detectors.
func newClassifier(metaData *model.Metadata, params TrainingParameters) (*classifier.PatternClassifier, func([]*classifier.Sample, *classifier.Params) error, error) {
	extractor := classifier.PrecomputedExtractor{Length: metaData.FeatureCount()}
	if params.MarkDetector {
		if params.NumClasses != 2 {
			return nil, nil, fmt.Errorf("a mark detector has 2 classes, data has %d", params.NumClasses)
		}
		detector := classifier.NewDefaultMarkDetector(extractor)
		return detector.PatternClassifier, detector.Train, nil
	}
	newEngine, err := classifier.EngineByName(params.Engine)
	if err != nil {
		return nil, nil, err
	}
	c := classifier.NewPatternClassifier(params.NumClasses, extractor, newEngine)
	return c, c.Train, nil
}

func inferNumClasses(data []*io.DataRecord) int {
	numClasses := 0
	for _, record := range data {
		if record.Label >= numClasses {
			numClasses = record.Label + 1
		}
	}
	return numClasses
}

// holdOut randomly splits data into a training part and an evaluation part
// holding the given fraction of the records.
func holdOut(data []*io.DataRecord, fraction float64, seed uint64) ([]*io.DataRecord, []*io.DataRecord, error) {
	numTest := int(math.Round(float64(len(data)) * fraction))
	if numTest < 1 || numTest >= len(data) {
		return nil, nil, fmt.Errorf("cannot hold out %.2f of %d records", fraction, len(data))
	}
	splits := io.NewDataSet(data, 1, int64(seed)).RandomSplit(len(data)-numTest, numTest)
	return splits[0].Records(), splits[1].Records(), nil
}
