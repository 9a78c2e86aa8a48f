package enricher

import (
	"github.com/mssola/useragent"

	"github.com/ulvi123/ChanceuStore-techMVP/internal/model"
)

// Enricher derives capture-device metadata from the recording tablet's User-Agent
type Enricher struct{}

func NewEnricher() *Enricher {
	return &Enricher{}
}

// Enrich sets event.Source from userAgentString unless the caller already supplied one
func (e *Enricher) Enrich(event *model.InteractionEvent, userAgentString string) {
	if event.Source != nil || userAgentString == "" {
		return
	}

	ua := useragent.New(userAgentString)
	source := &model.CaptureSource{
		DeviceType: getDeviceType(ua),
		OS:         ua.OS(),
	}
	source.Browser, source.BrowserVersion = ua.Browser()

	event.Source = source
}

func getDeviceType(ua *useragent.UserAgent) string {
	if ua.Bot() {
		return "bot"
	}
	if ua.Mobile() {
		return "mobile"
	}
	return "desktop"
}
