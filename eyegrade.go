package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KinKir/eyegrade/pkg"
	"github.com/KinKir/eyegrade/pkg/classifier"
	"github.com/KinKir/eyegrade/pkg/config"
	"github.com/KinKir/eyegrade/pkg/exam"
)

var cfg = config.Default()

func TrainCommand() *cobra.Command {
	var trainFile string
	var testFile string
	var outputFile string
	var metadataFile string
	var targetColumn string
	var trainingParameters pkg.TrainingParameters

	var cmd = &cobra.Command{
		Use:   "train -i trainData -o outputFile -t targetColumn",
		Short: "Trains a classifier on the provided feature data, saves it and writes its metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd, &trainingParameters.Params)
			return pkg.Train(trainFile, testFile, outputFile, metadataFile, targetColumn, trainingParameters)
		},
	}

	cmd.Flags().StringVarP(&trainFile, "train-file", "i", "", "name of train file")
	cmd.Flags().StringVarP(&testFile, "test-file", "", "", "name of test file (optional, evaluates on the train file if not present)")
	cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "name of the file to save the classifier to")
	cmd.Flags().StringVarP(&metadataFile, "metadata-file", "", "", "name of the metadata file (optional, defaults to output file + .json)")
	cmd.Flags().StringVarP(&targetColumn, "target-column", "t", "", "column holding the class label")
	cmd.Flags().StringVarP(&trainingParameters.Engine, "engine", "e", classifier.EngineSVM, "classification engine: svm or network")
	cmd.Flags().IntVarP(&trainingParameters.NumClasses, "num-classes", "", 0, "number of classes (optional, inferred from the labels)")
	cmd.Flags().BoolVarP(&trainingParameters.MarkDetector, "mark-detector", "", false, "train a default mark detector (svm, C=100, gamma=0.01)")
	cmd.Flags().Float64VarP(&trainingParameters.HoldOut, "hold-out", "", 0, "fraction of the train file kept for evaluation when there is no test file")

	cmd.Flags().Float64VarP(&trainingParameters.C, "C", "C", classifier.DefaultC, "svm regularization strength")
	cmd.Flags().Float64VarP(&trainingParameters.Gamma, "gamma", "g", classifier.DefaultGamma, "svm rbf kernel width")
	cmd.Flags().IntVarP(&trainingParameters.HiddenDimension, "hidden-dimension", "f", 32, "network hidden dimension")
	cmd.Flags().IntVarP(&trainingParameters.NumEpochs, "num-epochs", "n", 30, "number of network training epochs")
	cmd.Flags().IntVarP(&trainingParameters.BatchSize, "batch-size", "b", 16, "network batch size")
	cmd.Flags().Float64VarP(&trainingParameters.LearningRate, "learning-rate", "l", 0.01, "network learning rate")
	cmd.Flags().Uint64VarP(&trainingParameters.RndSeed, "random-seed", "x", 42, "random seed")

	_ = cmd.MarkFlagRequired("train-file")
	_ = cmd.MarkFlagRequired("output-file")
	_ = cmd.MarkFlagRequired("target-column")

	return cmd
}

// applyConfigDefaults fills the parameters whose flags were not given from the configuration file.
func applyConfigDefaults(cmd *cobra.Command, params *classifier.Params) {
	fromConfig := cfg.Params()
	flags := cmd.Flags()
	if !flags.Changed("C") {
		params.C = fromConfig.C
	}
	if !flags.Changed("gamma") {
		params.Gamma = fromConfig.Gamma
	}
	if !flags.Changed("hidden-dimension") {
		params.HiddenDimension = fromConfig.HiddenDimension
	}
	if !flags.Changed("num-epochs") {
		params.NumEpochs = fromConfig.NumEpochs
	}
	if !flags.Changed("batch-size") {
		params.BatchSize = fromConfig.BatchSize
	}
	if !flags.Changed("learning-rate") {
		params.LearningRate = fromConfig.LearningRate
	}
	if !flags.Changed("random-seed") {
		params.RndSeed = fromConfig.RndSeed
	}
}

func TestCommand() *cobra.Command {
	var modelFile string
	var metadataFile string
	var inputFile string
	var outputFile string

	var cmd = &cobra.Command{
		Use:   "test -m modelFile -i testFile [-o outputFile]",
		Short: "Runs the provided classifier on the specified data and optionally writes its predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pkg.Test(modelFile, metadataFile, inputFile, outputFile)
		},
	}

	cmd.Flags().StringVarP(&modelFile, "model", "m", "", "name of classifier to test")
	cmd.Flags().StringVarP(&metadataFile, "metadata-file", "", "", "name of the metadata file (optional, defaults to model file + .json)")
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of data input file")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "name of output file (optional)")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func ClassifyCommand() *cobra.Command {
	var inputFile string
	var kind string
	var dataDir string

	var cmd = &cobra.Command{
		Use:   "classify -i featureFile -k digits|marks",
		Short: "Classifies feature vectors with the default classifiers of the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				dataDir = cfg.DataDir
			}
			dir, err := pkg.OpenDataDir(dataDir)
			if err != nil {
				return err
			}
			return pkg.Classify(dir, inputFile, kind, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "name of feature file")
	cmd.Flags().StringVarP(&kind, "kind", "k", pkg.KindDigits, "classifier to use: digits or marks")
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "data directory (optional, guessed if not present)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func EncodeModelCommand() *cobra.Command {
	var model string
	var numTables int
	var numAnswers int
	var dimensions string

	var cmd = &cobra.Command{
		Use:   "encode-model -l letter [--dimensions 4,10;4,9 | --tables n --answers n]",
		Short: "Prints the bit pattern that identifies an exam model on the sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			letter, err := exam.CheckModelLetter(model, false)
			if err != nil {
				return err
			}
			if dimensions != "" {
				tables, _, err := exam.ParseDimensions(dimensions, true)
				if err != nil {
					return err
				}
				numTables, numAnswers = len(tables), tables[0].Choices
			}
			bits, err := exam.EncodeModel(letter, numTables, numAnswers)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatBits(bits))
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "letter", "l", "", "model letter, A to H")
	cmd.Flags().StringVarP(&dimensions, "dimensions", "d", "", "exam dimensions as choices,questions per table (overrides --tables and --answers)")
	cmd.Flags().IntVarP(&numTables, "tables", "", 1, "number of answer tables")
	cmd.Flags().IntVarP(&numAnswers, "answers", "", 4, "number of answers per question")

	_ = cmd.MarkFlagRequired("letter")

	return cmd
}

func PermuteAnswersCommand() *cobra.Command {
	var answerList string
	var permutationText string
	var numChoices int

	var cmd = &cobra.Command{
		Use:   "permute-answers --answers 1,0,3 [--permutation 2/1,0,2;0/0,1,2;1/2,1,0]",
		Short: "Maps the answers read from a shuffled exam model to the canonical question and option numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := parseInts(answerList)
			if err != nil {
				return err
			}
			permutation := exam.IdentityPermutation(len(answers), numChoices)
			if permutationText != "" {
				if permutation, err = exam.ParsePermutation(permutationText); err != nil {
					return err
				}
			}
			if err := exam.CheckPermutation(answers, permutation); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatInts(exam.PermuteAnswers(answers, permutation)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&answerList, "answers", "a", "", "answers in sheet order: option number, 0 for blank, -1 for invalid")
	cmd.Flags().StringVarP(&permutationText, "permutation", "p", "", "permutation of the model as question/options entries numbered from 0 (identity if not present)")
	cmd.Flags().IntVarP(&numChoices, "choices", "c", 4, "number of choices per question of the identity permutation")

	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func parseInts(text string) ([]int, error) {
	fields := strings.Split(text, ",")
	values := make([]int, len(fields))
	for i, field := range fields {
		value, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in %s", field, text)
		}
		values[i] = value
	}
	return values, nil
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func DecodeModelCommand() *cobra.Command {
	var bitString string
	var acceptModelZero bool

	var cmd = &cobra.Command{
		Use:   "decode-model --bits 0100...",
		Short: "Prints the exam model letter encoded by a bit pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, err := parseBits(bitString)
			if err != nil {
				return err
			}
			letter, ok := exam.DecodeModel(bits, acceptModelZero)
			if !ok {
				return fmt.Errorf("bits %s do not encode a valid model", bitString)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%c\n", letter)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bitString, "bits", "", "", "bit pattern read from the sheet, left-most column first")
	cmd.Flags().BoolVarP(&acceptModelZero, "accept-zero", "z", false, "decode a blank pattern as model 0")

	_ = cmd.MarkFlagRequired("bits")

	return cmd
}

func formatBits(bits []bool) string {
	var b strings.Builder
	for _, bit := range bits {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func parseBits(text string) ([]bool, error) {
	bits := make([]bool, len(text))
	for i, c := range text {
		switch c {
		case '0':
		case '1':
			bits[i] = true
		default:
			return nil, fmt.Errorf("invalid bit %q in %s", c, text)
		}
	}
	return bits, nil
}

var configFile string
var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "eyegrade", PersistentPreRunE: setup, SilenceUsage: true}

	Main.PersistentFlags().StringVarP(&configFile, "config", "", "", "YAML configuration file (optional)")
	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(TrainCommand())
	Main.AddCommand(TestCommand())
	Main.AddCommand(ClassifyCommand())
	Main.AddCommand(EncodeModelCommand())
	Main.AddCommand(DecodeModelCommand())
	Main.AddCommand(PermuteAnswersCommand())

	if err := Main.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(configFile); err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("log-level") && cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	if !flags.Changed("log-format") && cfg.LogFormat != "" {
		logFormat = cfg.LogFormat
	}
	return setupLogging()
}

func setupLogging() error {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		return fmt.Errorf("invalid logging level %q", logLevel)
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", logFormat)
	}
	return nil
}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
