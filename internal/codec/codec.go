// Package codec reads and writes pipelines as ordered JSON documents.
//
// A document has a "PipelineBuilder" header holding the pipeline name,
// the format version and the filter count, followed by one object per
// filter keyed by its index:
//
//	{
//	    "PipelineBuilder": {"Name": "demo", "Version": "1", "Number_Filters": 2},
//	    "0": {"Filter_Name": "CreateDataContainer", ...},
//	    "1": {"Filter_Name": "ScaleArray", ...}
//	}
//
// Index keys are zero-padded to a common width when there are more than
// ten filters. Filters whose type is not registered are replaced by a
// placeholder that keeps the slot and writes the original object back.
package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/jsonobj"
	"github.com/nao1215/filterpipe/internal/model"
	"github.com/nao1215/filterpipe/internal/pipeline"
)

// Version is the document format version written by this package.
const Version = "1"

// Document keys.
const (
	KeyPipelineBuilder  = "PipelineBuilder"
	KeyName             = "Name"
	KeyVersion          = "Version"
	KeyNumberFilters    = "Number_Filters"
	KeyFilterName       = "Filter_Name"
	KeyFilterHumanLabel = "Filter_Human_Label"
	KeyFilterEnabled    = "Filter_Enabled"
	KeyFilterUUID       = "Filter_Uuid"
)

// Codes of the messages produced while reading a document.
const (
	// ErrCodeUnknownFilter marks a slot whose filter could not be created.
	ErrCodeUnknownFilter = -30
	// WarnCodeParameter marks a document value that could not be used.
	WarnCodeParameter = 30
)

// MaxMissingFilters is the number of filter entries a document may omit.
// Each omitted entry still gets a placeholder slot.
const MaxMissingFilters = 64

// Codec converts between pipelines and documents using a filter registry.
type Codec struct {
	registry *filter.Registry
	logger   *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets a custom logger for the codec.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		c.logger = logger
	}
}

// New creates a Codec that resolves filter names against registry.
func New(registry *filter.Registry, opts ...Option) *Codec {
	c := &Codec{registry: registry}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// indexKey returns the key of filter i in a document with n filters.
func indexKey(i, n int) string {
	if n <= 10 {
		return strconv.Itoa(i)
	}
	return fmt.Sprintf("%0*d", len(strconv.Itoa(n-1)), i)
}

// Read decodes a document into a pipeline. Unknown filters and unusable
// parameter values do not fail the read: they are reported in the
// returned messages. A malformed document returns an error and no
// pipeline. opts are applied to the new pipeline after its name.
func (c *Codec) Read(data []byte, opts ...pipeline.Option) (*pipeline.Pipeline, []model.PipelineMessage, error) {
	root, err := jsonobj.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	header, n, err := readHeader(root)
	if err != nil {
		return nil, nil, err
	}

	var name string
	if _, err := header.Decode(KeyName, &name); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	p := pipeline.New(append([]pipeline.Option{
		pipeline.WithName(name),
		pipeline.WithLogger(c.logger),
	}, opts...)...)

	messages := make([]model.PipelineMessage, 0)
	filters := make([]filter.Filter, 0, n)
	for i := range n {
		obj, err := filterObject(root, i, n)
		if err != nil {
			return nil, nil, err
		}
		f, msgs := c.readFilter(i, obj)
		messages = append(messages, msgs...)
		filters = append(filters, f)
	}
	if err := p.PushBack(filters...); err != nil {
		return nil, nil, err
	}

	c.logger.Debug("pipeline document read",
		"pipeline", name,
		"filters", n,
		"messages", len(messages),
	)
	return p, messages, nil
}

func readHeader(root *jsonobj.Object) (*jsonobj.Object, int, error) {
	header, ok, err := root.Object(KeyPipelineBuilder)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if !ok {
		return nil, 0, ErrMissingHeader
	}

	var n int
	found, err := header.Decode(KeyNumberFilters, &n)
	switch {
	case err != nil:
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidFilterCount, err)
	case !found:
		return nil, 0, fmt.Errorf("%w: %s is missing", ErrInvalidFilterCount, KeyNumberFilters)
	case n < 0:
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidFilterCount, n)
	case n > root.Len()-1+MaxMissingFilters:
		return nil, 0, fmt.Errorf("%w: %d filters declared, %d entries present",
			ErrInvalidFilterCount, n, root.Len()-1)
	}
	return header, n, nil
}

// filterObject returns the object of filter i, trying the plain index
// first and then the padded one. A missing object returns nil.
func filterObject(root *jsonobj.Object, i, n int) (*jsonobj.Object, error) {
	keys := []string{strconv.Itoa(i)}
	if padded := fmt.Sprintf("%0*d", len(strconv.Itoa(n-1)), i); padded != keys[0] {
		keys = append(keys, padded)
	}
	for _, key := range keys {
		obj, ok, err := root.Object(key)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %d: %w", ErrMalformedDocument, i, err)
		}
		if ok {
			return obj, nil
		}
	}
	return nil, nil
}

func (c *Codec) readFilter(i int, obj *jsonobj.Object) (filter.Filter, []model.PipelineMessage) {
	if obj == nil {
		src := model.Source{Index: i}
		return filter.NewUnknown("", "", nil), []model.PipelineMessage{
			model.NewErrorMessage(src, ErrCodeUnknownFilter,
				fmt.Sprintf("the document has no object for filter %d", i)),
		}
	}

	var name, label string
	_, nameErr := obj.Decode(KeyFilterName, &name)
	_, _ = obj.Decode(KeyFilterHumanLabel, &label)
	src := model.Source{Name: name, Label: label, Index: i}

	if nameErr != nil || name == "" {
		c.logger.Warn("filter has no name", "index", i)
		return filter.NewUnknown(name, label, obj), []model.PipelineMessage{
			model.NewErrorMessage(src, ErrCodeUnknownFilter,
				fmt.Sprintf("filter %d has no %s", i, KeyFilterName)),
		}
	}

	f, err := c.registry.New(name)
	if err != nil {
		c.logger.Warn("unknown filter", "index", i, "filter", name)
		return filter.NewUnknown(name, label, obj), []model.PipelineMessage{
			model.NewErrorMessage(src, ErrCodeUnknownFilter,
				fmt.Sprintf("filter %d: %q is not an available filter", i, name)),
		}
	}

	var messages []model.PipelineMessage
	warn := func(text string) {
		messages = append(messages, model.NewWarningMessage(src, WarnCodeParameter, text))
	}

	b := f.Core()
	var enabled bool
	if found, err := obj.Decode(KeyFilterEnabled, &enabled); err != nil {
		warn(err.Error())
	} else if found {
		b.SetEnabled(enabled)
	}

	var id string
	if found, err := obj.Decode(KeyFilterUUID, &id); err != nil {
		warn(err.Error())
	} else if found {
		if parsed, err := uuid.Parse(id); err != nil {
			warn(fmt.Sprintf("invalid %s %q: %v", KeyFilterUUID, id, err))
		} else {
			b.SetUUID(parsed)
		}
	}

	for _, param := range b.Parameters() {
		if err := param.ReadJSON(obj); err != nil {
			warn(err.Error())
		}
	}
	return f, messages
}

// Write encodes p as an indented document.
func (c *Codec) Write(p *pipeline.Pipeline) ([]byte, error) {
	filters := p.Filters()
	n := len(filters)

	header := jsonobj.New()
	if err := header.Set(KeyName, p.Name()); err != nil {
		return nil, err
	}
	if err := header.Set(KeyVersion, Version); err != nil {
		return nil, err
	}
	if err := header.Set(KeyNumberFilters, n); err != nil {
		return nil, err
	}

	root := jsonobj.New()
	if err := root.Set(KeyPipelineBuilder, header); err != nil {
		return nil, err
	}
	for i, f := range filters {
		obj, err := writeFilter(f)
		if err != nil {
			return nil, fmt.Errorf("failed to write filter %d (%s): %w", i, f.Core().Name(), err)
		}
		if err := root.Set(indexKey(i, n), obj); err != nil {
			return nil, err
		}
	}

	data, err := json.MarshalIndent(root, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode pipeline: %w", err)
	}
	return append(data, '\n'), nil
}

func writeFilter(f filter.Filter) (*jsonobj.Object, error) {
	b := f.Core()
	if u, ok := f.(*filter.Unknown); ok {
		if raw := u.Raw(); raw != nil {
			return raw, nil
		}
		obj := jsonobj.New()
		if err := obj.Set(KeyFilterName, b.Name()); err != nil {
			return nil, err
		}
		if err := obj.Set(KeyFilterHumanLabel, b.HumanLabel()); err != nil {
			return nil, err
		}
		return obj, nil
	}

	obj := jsonobj.New()
	fields := []struct {
		key   string
		value any
	}{
		{KeyFilterName, b.Name()},
		{KeyFilterHumanLabel, b.HumanLabel()},
		{KeyFilterEnabled, b.Enabled()},
		{KeyFilterUUID, b.UUID().String()},
	}
	for _, field := range fields {
		if err := obj.Set(field.key, field.value); err != nil {
			return nil, err
		}
	}
	for _, param := range b.Parameters() {
		if err := param.WriteJSON(obj); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// ReadFile reads the document at path.
func (c *Codec) ReadFile(path string, opts ...pipeline.Option) (*pipeline.Pipeline, []model.PipelineMessage, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return c.Read(data, opts...)
}

// WriteFile writes p to path, replacing any existing file.
func (c *Codec) WriteFile(path string, p *pipeline.Pipeline) error {
	data, err := c.Write(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write pipeline file: %w", err)
	}
	return nil
}

// Fingerprint returns the hex SHA3-256 digest of a document.
func Fingerprint(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
