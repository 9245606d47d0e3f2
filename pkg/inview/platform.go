// pkg/inview/platform.go
package inview

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// iOS viewports always scroll when content overflows, even with overflow: hidden
// on the root. No DOM measurement shows this, so the platform is sniffed.
var iosUserAgentRe = regexp.MustCompile(`iPad|iPhone|iPod`)

// isIOS reports whether win runs on iOS. The answer is memoized on the engine.
func (e *Engine) isIOS(ctx context.Context, win Window) (bool, error) {
	e.iosMu.Lock()
	defer e.iosMu.Unlock()

	if e.ios != nil {
		return *e.ios, nil
	}
	ua, err := win.UserAgent(ctx)
	if err != nil {
		return false, fmt.Errorf("reading user agent: %w", err)
	}
	ios := iosUserAgentRe.MatchString(ua)
	e.ios = &ios
	e.logger.Debug("Platform detected.", zap.Bool("ios", ios), zap.String("user_agent", ua))
	return ios, nil
}
