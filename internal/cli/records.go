package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/strongdm/plugin-crash-reporter/pkg/crashreport"
)

// recordInput is one element of a crash records file.
type recordInput struct {
	Text  string               `json:"text"`
	Cause *crashreport.Failure `json:"cause,omitempty"`
}

// ReadRecords decodes a JSON array of crash records. Entries without a cause
// become plain records.
func ReadRecords(r io.Reader) ([]crashreport.Record, error) {
	var inputs []recordInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, errors.Wrap(err, "decoding crash records")
	}

	records := make([]crashreport.Record, 0, len(inputs))
	for _, in := range inputs {
		if in.Cause == nil {
			records = append(records, crashreport.PlainMessage{Message: in.Text})
			continue
		}
		records = append(records, crashreport.CausedMessage{Message: in.Text, Err: in.Cause})
	}
	return records, nil
}

func readRecordsFile(path string) ([]crashreport.Record, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	if path == "-" {
		return ReadRecords(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening crash records: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}
