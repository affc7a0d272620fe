package cli

import (
	"fmt"
	"path/filepath"

	"cvforge/internal/common"
	"cvforge/internal/errors"
	"cvforge/internal/pipeline"
	"cvforge/internal/utils"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process [cv-file]",
	Short: "Process a CV file into a formatted document",
	Long: `Process a single CV file through the full pipeline: upload to storage,
parse, generate an AI blurb, enrich with location data and render the final
document. The parsed record and the rendered document are written to the
configured output directories.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if processConfig.OutputFormat == "" {
			processConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(processConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runProcess,
}

var processConfig common.CommandConfig

func init() {
	processCmd.Flags().StringVarP(&processConfig.OutputFile, "output", "o", "", "Output file path for the run report (default: stdout)")
	processCmd.Flags().StringVar(&processConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = processCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	filename := args[0]
	ext := utils.GetFileExtension(filename)
	if !cfg.App.AllowedExtension(ext) {
		return errors.NewValidationError(errors.ErrCodeInvalidFileType,
			fmt.Sprintf("File type %s is not supported. Allowed types: %v",
				ext, cfg.App.AllowedExtensions), nil)
	}

	fileProcessor := common.NewFileProcessor(logger)
	fileBytes, err := fileProcessor.ReadUpload(filename, cfg.App.MaxFileSize)
	if err != nil {
		return err
	}

	deps, err := newPipeline(ctx, cfg, logger, pipeline.Deps{})
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	logger.Info("Processing CV",
		"file", filename,
		"size", utils.FormatFileSize(int64(len(fileBytes))),
		"output_format", processConfig.OutputFormat)

	result := deps.orchestrator.Process(ctx, filepath.Base(filename), fileBytes)

	outputHandler := common.NewOutputHandler(logger)
	if err := outputHandler.HandleOutput(result, processConfig); err != nil {
		return err
	}

	switch result.Status {
	case pipeline.StatusSuccess:
		logger.Info("CV processed successfully",
			"key", result.Key, "document", result.DocumentPath)
		return nil
	case pipeline.StatusRecoverable:
		return fmt.Errorf("processing stopped at %s stage: %s", result.Stage, result.UserMessage)
	default:
		return fmt.Errorf("processing failed at %s stage: %s", result.Stage, result.Diagnostic)
	}
}
