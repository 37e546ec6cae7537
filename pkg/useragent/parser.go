package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Parser wraps the User-Agent parser with device type classification. It is
// constructed once and passed explicitly to whoever needs it; there is no
// package-level instance.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo represents parsed device information
type DeviceInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows, iOS, Android, etc.
	Raw        string // Original User-Agent string
}

// New creates a parser. With an empty path the regex definitions compiled
// into the uap-go package are used; a path overrides them with a newer
// regexes.yaml.
func New(regexFilePath string, log *zap.Logger) (*Parser, error) {
	if regexFilePath == "" {
		return &Parser{parser: uaparser.NewFromSaved(), log: log}, nil
	}

	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file: %w", err)
	}
	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))
	return &Parser{parser: parser, log: log}, nil
}

// Parse parses a User-Agent string and returns device information.
func (p *Parser) Parse(userAgent string) *DeviceInfo {
	info := &DeviceInfo{
		DeviceType: "unknown",
		Browser:    "unknown",
		OS:         "unknown",
		Raw:        userAgent,
	}
	if userAgent == "" {
		return info
	}

	client := p.parser.Parse(userAgent)
	if client.UserAgent != nil && client.UserAgent.Family != "" {
		info.Browser = client.UserAgent.Family
	}
	if client.Os != nil && client.Os.Family != "" {
		info.OS = client.Os.Family
	}

	deviceFamily := ""
	if client.Device != nil {
		deviceFamily = client.Device.Family
	}
	info.DeviceType = classifyDevice(userAgent, deviceFamily, info.Browser)

	return info
}

// classifyDevice buckets a parsed device into the coarse types the
// analytics columns store.
func classifyDevice(userAgent, deviceFamily, browser string) string {
	ua := strings.ToLower(userAgent)
	family := strings.ToLower(deviceFamily)

	if family == "spider" || strings.Contains(ua, "bot") || strings.Contains(ua, "spider") ||
		strings.Contains(ua, "crawler") || strings.Contains(strings.ToLower(browser), "bot") {
		return "bot"
	}

	for _, keyword := range []string{"tablet", "ipad", "kindle", "silk", "playbook"} {
		if strings.Contains(ua, keyword) {
			return "tablet"
		}
	}

	for _, keyword := range []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone", "webos", "opera mini"} {
		if strings.Contains(ua, keyword) {
			return "mobile"
		}
	}

	return "desktop"
}
