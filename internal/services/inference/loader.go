package inference

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	domsvc "KiranaCash/internal/domain/service"
	xlogger "KiranaCash/pkg/logger"
)

// Loader resolves model references. Supported forms:
//
//	file://path/to/model.json   exported LinearModel document
//	path/to/model.json          same, without scheme
//	http(s)://host[:port]       remote model server, model looked up by name
type Loader struct {
	timeout time.Duration
	logger  *xlogger.Logger
}

func NewLoader(timeout time.Duration, logger *xlogger.Logger) *Loader {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Loader{timeout: timeout, logger: logger}
}

// Load returns a model handle or an error wrapping ErrModelLoad.
func (l *Loader) Load(ctx context.Context, name, ref string) (domsvc.Model, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: %s: empty reference", domsvc.ErrModelLoad, name)
	}
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		m, err := NewHTTPModel(ctx, name, NewHTTPServiceBase(ref, l.timeout))
		if err != nil {
			return nil, err
		}
		l.logger.Info("model loaded", xlogger.String("name", name), xlogger.String("ref", ref), xlogger.Int("features", len(m.features)))
		return m, nil
	default:
		path := strings.TrimPrefix(ref, "file://")
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domsvc.ErrModelLoad, name, err)
		}
		m, err := ParseLinearModel(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domsvc.ErrModelLoad, name, err)
		}
		if m.ModelName == "" {
			m.ModelName = name
		}
		l.logger.Info("model loaded",
			xlogger.String("name", name),
			xlogger.String("ref", ref),
			xlogger.String("schema", m.Schema),
			xlogger.Int("features", len(m.Features)),
			xlogger.Int("outputs", m.Outputs()),
		)
		return m, nil
	}
}

var _ domsvc.ModelLoader = (*Loader)(nil)
