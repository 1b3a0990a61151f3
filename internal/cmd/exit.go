package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	apperrors "github.com/parcelops/hubsync/internal/errors"
	"github.com/parcelops/hubsync/internal/observability"
)

// ExitWithError classifies err, reports it and exits with the matching semantic exit code.
func ExitWithError(err error) {
	envelope := apperrors.EnsureEnvelope(err)
	ExitWithCode(observability.CLILogger, apperrors.ExitCodeFor(envelope), "Command failed", envelope)
}

// ExitWithCode exits the program with a semantic foundry exit code and logs the error.
//
// Parameters:
//   - logger: The logger to use for error output (can be nil for early failures)
//   - exitCode: The foundry exit code constant (e.g., foundry.ExitConfigInvalid)
//   - msg: Human-readable error message
//   - err: The underlying error (can be nil)
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	if logger != nil {
		fields := []zap.Field{
			zap.Int("exit_code", info.Code),
			zap.String("exit_name", info.Name),
			zap.String("exit_category", info.Category),
		}

		if envelope, ok := err.(*errors.ErrorEnvelope); ok {
			fields = append(fields,
				zap.String("error_code", envelope.Code),
				zap.String("correlation_id", envelope.CorrelationID),
			)
			if envelope.Context != nil {
				fields = append(fields, zap.Any("error_context", envelope.Context))
			}
			if envelope.Original != nil {
				if originalErr, ok := envelope.Original.(error); ok {
					err = originalErr // Log the underlying error
				}
			}
		}

		fields = append(fields, zap.Error(err))
		logger.Error(msg, fields...)
	} else {
		writeFailure(os.Stderr, msg, err)
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	}

	os.Exit(info.Code)
}

// writeFailure prints err for an operator, with the envelope code and correlation id when present.
func writeFailure(w io.Writer, msg string, err error) {
	if err == nil {
		fmt.Fprintf(w, "FATAL: %s\n", msg)
		return
	}

	envelope, ok := err.(*errors.ErrorEnvelope)
	if !ok {
		fmt.Fprintf(w, "FATAL: %s: %v\n", msg, err)
		return
	}

	fmt.Fprintf(w, "FATAL: %s [%s]: %s\n", msg, envelope.Code, envelope.Message)
	if envelope.CorrelationID != "" {
		fmt.Fprintf(w, "Correlation: %s\n", envelope.CorrelationID)
	}
	if retryIn, ok := envelope.Context["retry_in"]; ok {
		fmt.Fprintf(w, "Daily quota recovers in: %v\n", retryIn)
	}
}

// ExitWithCodeStderr is a variant that writes to stderr without a logger.
// Use this for early failures before logger initialization.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	ExitWithCode(nil, exitCode, msg, err)
}
