package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/remedy/internal/clinic"
)

// FindDoctors exposes the doctor directory as a read-only agent capability.
type FindDoctors struct {
	directory clinic.Directory
}

// NewFindDoctors creates the directory lookup tool.
func NewFindDoctors(directory clinic.Directory) *FindDoctors {
	return &FindDoctors{directory: directory}
}

func (f *FindDoctors) Name() string { return "find_doctors" }

func (f *FindDoctors) Description() string {
	return `Look up doctors by medical speciality. Matching is case-insensitive and
accepts partial speciality names. Returns up to three doctors ranked by years
of experience, most experienced first. An empty list means no doctor in the
directory covers that speciality.`
}

func (f *FindDoctors) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "specialities": {
                "type": "array",
                "items": {"type": "string"},
                "description": "Medical specialities to search for, e.g. [\"Cardiologist\"]"
            }
        },
        "required": ["specialities"]
    }`)
}

func (f *FindDoctors) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Specialities []string `json:"specialities"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if len(input.Specialities) == 0 {
		return nil, fmt.Errorf("specialities is required")
	}

	doctors, err := f.directory.FindBySpeciality(ctx, input.Specialities, clinic.MaxDoctors)
	if err != nil {
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}

	output := map[string]any{
		"count":   len(doctors),
		"doctors": doctors,
	}

	return json.Marshal(output)
}
