package registry

import (
	"encoding/json"
	"testing"

	"github.com/biovault-exchange/biovault-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventQualityFlagged, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"severity":"major"}`)
	output, err := reg.Decode(enums.EventQualityFlagged, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["severity"] != "major" {
		t.Fatalf("unexpected output %+v", output)
	}

	if _, err := reg.Decode(enums.EventQualityFlagged, 2, input); err == nil {
		t.Fatalf("expected error for unregistered version")
	}
}
