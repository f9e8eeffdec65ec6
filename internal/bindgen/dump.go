package bindgen

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
)

// DumpFormatVersion identifies the dump layout. Consumers reject dumps with
// a version they do not know.
const DumpFormatVersion = 1

// Dump is the machine-readable snapshot of one pipeline run: the validated
// component interface together with the FFI surface derived from it.
type Dump struct {
	FormatVersion  int                       `json:"formatVersion"`
	BuildID        string                    `json:"buildId"`
	GeneratedAt    time.Time                 `json:"generatedAt"`
	Version        string                    `json:"version,omitempty"`
	SchemaChecksum string                    `json:"schemaChecksum"`
	Interface      *model.ComponentInterface `json:"interface"`
	Signatures     *ffi.SignatureSet         `json:"signatures"`
}

// NewDump snapshots the artifacts of a run.
func NewDump(artifacts *Artifacts) *Dump {
	return &Dump{
		FormatVersion:  DumpFormatVersion,
		BuildID:        uuid.NewString(),
		GeneratedAt:    artifacts.Info.Timestamp,
		Version:        artifacts.Info.Version,
		SchemaChecksum: artifacts.Info.SchemaChecksum,
		Interface:      artifacts.Interface,
		Signatures:     artifacts.Signatures,
	}
}

// Marshal renders the dump as indented JSON.
func (d *Dump) Marshal() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
