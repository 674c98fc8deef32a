package storage

import (
	"encoding/json"
	"fmt"

	"github.com/wjteo/rankrouter/internal/data"
)

// ReadInvocationHistory loads previously persisted invocation records. A
// missing file is treated as an empty history.
func ReadInvocationHistory(filePath string) ([]data.InferenceInvocation, error) {
	if !CheckFileExistence(filePath) {
		return nil, nil
	}

	byteVal, err := ReadFromFile(filePath)
	if err != nil {
		return nil, err
	}

	var invocations []data.InferenceInvocation
	if err := json.Unmarshal(byteVal, &invocations); err != nil {
		return nil, fmt.Errorf("error decoding invocation history JSON: %w", err)
	}

	return invocations, nil
}

// AppendInvocationHistory adds new records to the history file, creating it
// when absent.
func AppendInvocationHistory(filePath string, invocations []data.InferenceInvocation) error {
	if len(invocations) == 0 {
		return nil
	}

	existing, err := ReadInvocationHistory(filePath)
	if err != nil {
		return err
	}

	byteVal, err := json.MarshalIndent(append(existing, invocations...), "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding invocation history JSON: %w", err)
	}

	return WriteToFile(filePath, byteVal)
}
