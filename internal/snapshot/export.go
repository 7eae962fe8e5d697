package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/mirror/runtime/decl"
)

// SchemaVersion is bumped when the payload layout changes.
const SchemaVersion uint16 = 1

const latestKey = "latest"

// Payload is one exported library.
type Payload struct {
	Schema  uint16         `json:"schema"`
	URI     string         `json:"uri"`
	Hash    string         `json:"hash"`
	Library map[string]any `json:"library"`
}

// Entry records where a library of a generation was stored.
type Entry struct {
	URI    string `json:"uri"`
	Key    string `json:"key"`
	Hash   string `json:"hash"`
	Reused bool   `json:"reused,omitempty"`
}

// Manifest lists the libraries exported for one registry generation.
type Manifest struct {
	Schema     uint16    `json:"schema"`
	Generation string    `json:"generation"`
	Codec      string    `json:"codec"`
	CreatedAt  time.Time `json:"created_at"`
	Entries    []Entry   `json:"entries"`
}

// Exporter writes library exports into a Store. Library payloads are
// content addressed so an unchanged library is written once across
// generations.
type Exporter struct {
	store  Store
	codec  Codec
	ttl    time.Duration
	logger *zap.Logger
}

// NewExporter creates an exporter. A nil codec means JSON and a zero ttl
// the store default.
func NewExporter(store Store, codec Codec, ttl time.Duration, logger *zap.Logger) *Exporter {
	if codec == nil {
		codec = JSONCodec{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, codec: codec, ttl: ttl, logger: logger}
}

// LibraryKey is the store key of a library export with the given hash.
func LibraryKey(uri, hash string) string {
	return "lib:" + uri + ":" + hash
}

// GenerationKey is the store key of a generation's manifest.
func GenerationKey(generation string) string {
	return "gen:" + generation
}

// Hash returns the content hash of a library export.
func Hash(lib *decl.Library) (map[string]any, string, error) {
	doc := lib.ToJSON()
	// encoding/json sorts map keys, so equal documents hash equally.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode %s: %w", lib.URI(), err)
	}
	sum := sha256.Sum256(canonical)
	return doc, hex.EncodeToString(sum[:8]), nil
}

// Export stores every library and a manifest for generation, then marks
// generation as the latest.
func (e *Exporter) Export(ctx context.Context, generation string, libs []*decl.Library) (*Manifest, error) {
	if generation == "" {
		return nil, fmt.Errorf("export requires a generation id")
	}
	manifest := &Manifest{
		Schema:     SchemaVersion,
		Generation: generation,
		Codec:      e.codec.Name(),
		CreatedAt:  time.Now().UTC(),
		Entries:    make([]Entry, 0, len(libs)),
	}

	for _, lib := range libs {
		doc, hash, err := Hash(lib)
		if err != nil {
			return nil, err
		}
		entry := Entry{URI: lib.URI(), Key: LibraryKey(lib.URI(), hash), Hash: hash}

		exists, err := e.store.Exists(ctx, entry.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", entry.Key, err)
		}
		if exists {
			entry.Reused = true
		} else {
			if err := e.put(ctx, entry.Key, Payload{Schema: SchemaVersion, URI: lib.URI(), Hash: hash, Library: doc}); err != nil {
				return nil, err
			}
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	if err := e.put(ctx, GenerationKey(generation), manifest); err != nil {
		return nil, err
	}
	if err := e.store.Set(ctx, latestKey, []byte(generation), e.ttl); err != nil {
		return nil, fmt.Errorf("failed to update latest generation: %w", err)
	}

	e.logger.Info("exported snapshot",
		zap.String("generation", generation),
		zap.String("codec", e.codec.Name()),
		zap.Int("libraries", len(manifest.Entries)),
	)
	return manifest, nil
}

// Latest returns the manifest of the most recent export.
func (e *Exporter) Latest(ctx context.Context) (*Manifest, error) {
	generation, err := e.store.Get(ctx, latestKey)
	if err != nil {
		return nil, err
	}
	return e.Manifest(ctx, string(generation))
}

// Manifest loads the manifest of generation.
func (e *Exporter) Manifest(ctx context.Context, generation string) (*Manifest, error) {
	var m Manifest
	if err := e.get(ctx, GenerationKey(generation), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Library loads the payload an entry points at.
func (e *Exporter) Library(ctx context.Context, entry Entry) (*Payload, error) {
	var p Payload
	if err := e.get(ctx, entry.Key, &p); err != nil {
		return nil, err
	}
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("%s: unsupported schema version %d", entry.Key, p.Schema)
	}
	return &p, nil
}

func (e *Exporter) put(ctx context.Context, key string, v any) error {
	data, err := e.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := e.store.Set(ctx, key, data, e.ttl); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (e *Exporter) get(ctx context.Context, key string, v any) error {
	data, err := e.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := e.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}
