// internal/browser/dom/host.go
package dom

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/xkilldash9x/inview/internal/browser/layout"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// blankDocument backs iframes without content.
const blankDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// Host is an offline browser over parsed HTML. Every window, document and
// element it hands out implements the inview host interfaces. Layout is
// computed lazily and redone after any mutation or scroll.
//
// A Host is safe for concurrent use; all handles share one lock.
type Host struct {
	mu     sync.Mutex
	opts   Options
	logger *zap.Logger

	// gen counts mutations. A document whose layout was computed for an older
	// generation lays out again on the next read.
	gen int
}

// NewHost creates a host. Zero options fall back to DefaultOptions.
func NewHost(opts Options) *Host {
	opts = opts.withDefaults()
	return &Host{opts: opts, logger: opts.Logger.Named("dom")}
}

// Load parses a document into a new top level window.
func (h *Host) Load(r io.Reader) (*Window, error) {
	return h.load(r, h.opts.BaseDir)
}

// LoadString parses markup into a new top level window.
func (h *Host) LoadString(markup string) (*Window, error) {
	return h.Load(strings.NewReader(markup))
}

// LoadFile parses an HTML file. Relative stylesheet links and iframe sources
// resolve against the file's directory.
func (h *Host) LoadFile(path string) (*Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()
	return h.load(f, filepath.Dir(path))
}

func (h *Host) load(r io.Reader, baseDir string) (*Window, error) {
	doc, err := h.parseDocument(r, baseDir)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	win := &Window{host: h, doc: doc, userAgent: h.opts.UserAgent}
	doc.win = win
	h.logger.Debug("Document loaded.", zap.String("compat_mode", doc.compatMode()), zap.String("base_dir", baseDir))
	return win, nil
}

func (h *Host) parseDocument(r io.Reader, baseDir string) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Document{
		host:    h,
		root:    root,
		quirks:  !hasDoctype(root),
		baseDir: baseDir,
		scroll:  make(map[*html.Node]layout.Point),
		frames:  make(map[*html.Node]*Window),
		links:   make(map[string]linkedSheet),
		gen:     -1,
	}, nil
}

// hasDoctype reports whether the document starts in standards mode.
func hasDoctype(root *html.Node) bool {
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.DoctypeNode {
			return strings.EqualFold(n.Data, "html")
		}
	}
	return false
}

// invalidate marks every document's layout stale. Callers hold h.mu.
func (h *Host) invalidate() {
	h.gen++
}

// frameWindow creates the browsing context of an iframe on first access. The
// content comes from srcdoc, a local src file, or an empty standards document.
func (h *Host) frameWindow(parent *Document, frame *html.Node) *Window {
	if win, ok := parent.frames[frame]; ok {
		return win
	}

	var (
		doc     *Document
		err     error
		baseDir = parent.baseDir
		source  = "about:blank"
	)
	if srcdoc, ok := attr(frame, "srcdoc"); ok {
		source = "srcdoc"
		doc, err = h.parseDocument(strings.NewReader(srcdoc), baseDir)
	} else if src, ok := attr(frame, "src"); ok && localPath(src) != "" {
		path := resolvePath(baseDir, localPath(src))
		source = path
		var f *os.File
		if f, err = os.Open(path); err == nil {
			doc, err = h.parseDocument(f, filepath.Dir(path))
			f.Close()
		}
	}
	if doc == nil {
		if err != nil {
			h.logger.Warn("Could not load iframe content, using a blank document.", zap.String("source", source), zap.Error(err))
		}
		doc, _ = h.parseDocument(strings.NewReader(blankDocument), baseDir)
	}

	win := &Window{host: h, doc: doc, frame: frame, parent: parent, userAgent: h.opts.UserAgent}
	doc.win = win
	parent.frames[frame] = win
	h.logger.Debug("Frame window created.", zap.String("source", source))
	return win
}

// localPath strips a file: scheme and rejects other schemes.
func localPath(src string) string {
	src = strings.TrimSpace(src)
	switch {
	case src == "", strings.HasPrefix(src, "about:"):
		return ""
	case strings.HasPrefix(src, "file://"):
		return strings.TrimPrefix(src, "file://")
	case strings.Contains(src, "://"), strings.HasPrefix(src, "data:"), strings.HasPrefix(src, "javascript:"):
		return ""
	}
	return src
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
