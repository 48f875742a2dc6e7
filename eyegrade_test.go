package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeModel(t *testing.T) {
	encodeCmd := EncodeModelCommand()
	out := bytes.NewBufferString("")
	encodeCmd.SetOut(out)
	encodeCmd.SetArgs(strings.Split("-l C --tables 1 --answers 8", " "))
	require.NoError(t, encodeCmd.Execute())
	require.Equal(t, "01000100\n", out.String())

	decodeCmd := DecodeModelCommand()
	out.Reset()
	decodeCmd.SetOut(out)
	decodeCmd.SetArgs([]string{"--bits", "01000100"})
	require.NoError(t, decodeCmd.Execute())
	require.Equal(t, "C\n", out.String())
}

func TestDecodeModelErrors(t *testing.T) {
	for _, args := range [][]string{
		{"--bits", "01000101"},
		{"--bits", "0000"},
		{"--bits", "01x0"},
	} {
		cmd := DecodeModelCommand()
		cmd.SetOut(bytes.NewBufferString(""))
		cmd.SetErr(bytes.NewBufferString(""))
		cmd.SetArgs(args)
		require.Error(t, cmd.Execute(), args)
	}

	cmd := DecodeModelCommand()
	out := bytes.NewBufferString("")
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--bits", "0000", "-z"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "0\n", out.String())
}

func TestEncodeModelTooBig(t *testing.T) {
	cmd := EncodeModelCommand()
	cmd.SetOut(bytes.NewBufferString(""))
	cmd.SetErr(bytes.NewBufferString(""))
	cmd.SetArgs(strings.Split("-l E --tables 1 --answers 2", " "))
	require.Error(t, cmd.Execute())
}

func TestTrainTestCommands(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "cells.csv")
	var b strings.Builder
	b.WriteString("label,f1,f2\n")
	for i := 0; i < 10; i++ {
		d := float64(i) / 20
		fmt.Fprintf(&b, "0,%g,%g\n", d, 1-d)
		fmt.Fprintf(&b, "1,%g,%g\n", 5+d, 4-d)
	}
	require.NoError(t, os.WriteFile(dataFile, []byte(b.String()), 0o644))
	modelFile := filepath.Join(dir, "cells.gob.sz")

	trainCmd := TrainCommand()
	trainCmd.SetArgs([]string{"-i", dataFile, "-o", modelFile, "-t", "label", "--gamma", "0.5"})
	require.NoError(t, trainCmd.Execute())
	require.FileExists(t, modelFile)
	require.FileExists(t, modelFile+".json")

	outputFile := filepath.Join(dir, "predictions.csv")
	testCmd := TestCommand()
	testCmd.SetArgs([]string{"-m", modelFile, "-i", dataFile, "-o", outputFile})
	require.NoError(t, testCmd.Execute())
	predictions, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	require.Equal(t, "0,0\n1,1\n", string(predictions[:8]))
}

func TestSetupLogging(t *testing.T) {
	defer func() { logLevel, logFormat = "info", "pretty" }()

	logLevel, logFormat = "debug", "json"
	require.NoError(t, setupLogging())
	logLevel = "verbose"
	require.Error(t, setupLogging())
	logLevel, logFormat = "info", "xml"
	require.Error(t, setupLogging())
}

func TestEncodeModelDimensions(t *testing.T) {
	cmd := EncodeModelCommand()
	out := bytes.NewBufferString("")
	cmd.SetOut(out)
	cmd.SetArgs([]string{"-l", "c", "--dimensions", "4,10;4,9"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "01000100\n", out.String())

	for _, args := range [][]string{
		{"-l", "C", "--dimensions", "4,10;5,9"},
		{"-l", "C", "--dimensions", "4;10"},
		{"-l", "?"},
		{"-l", "CD"},
	} {
		cmd := EncodeModelCommand()
		cmd.SetOut(bytes.NewBufferString(""))
		cmd.SetErr(bytes.NewBufferString(""))
		cmd.SetArgs(args)
		require.Error(t, cmd.Execute(), args)
	}
}

func TestPermuteAnswersCommand(t *testing.T) {
	cmd := PermuteAnswersCommand()
	out := bytes.NewBufferString("")
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--answers", "1,0,-1", "--permutation", "2/2,0,1;0/0,1,2;1/1,2,0"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "0,-1,3\n", out.String())

	cmd = PermuteAnswersCommand()
	out.Reset()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--answers", "3,0,2", "--choices", "3"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "3,0,2\n", out.String())

	for _, args := range [][]string{
		{"--answers", "4,0,2", "--choices", "3"},
		{"--answers", "1,x"},
		{"--answers", "1,2", "--permutation", "0/0,1"},
	} {
		cmd := PermuteAnswersCommand()
		cmd.SetOut(bytes.NewBufferString(""))
		cmd.SetErr(bytes.NewBufferString(""))
		cmd.SetArgs(args)
		require.Error(t, cmd.Execute(), args)
	}
}
