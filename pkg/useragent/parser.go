package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Device classes assigned by Classify.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// classRule maps a case-insensitive User-Agent substring to a device class.
type classRule struct {
	pattern string
	device  string
}

// deviceRules are evaluated in order; the first matching pattern wins and
// anything unmatched is desktop. Keeping the policy as a table makes it
// auditable independent of request plumbing.
var deviceRules = []classRule{
	{"mobile", DeviceMobile},
	{"tablet", DeviceTablet},
}

// Parser classifies device types and resolves browser/OS families from raw
// User-Agent strings.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo represents parsed device information.
type DeviceInfo struct {
	DeviceType string // desktop, mobile, tablet
	Browser    string // Chrome, Firefox, Safari, ...; empty when unresolvable
	OS         string // Windows, iOS, Android, ...; empty when unresolvable
	Raw        string // Original User-Agent string
}

// New creates a parser. When regexFilePath points to a readable uap-core
// regexes file it is used; otherwise the definitions compiled into uap-go
// serve as fallback, so construction never fails.
func New(regexFilePath string, log *zap.Logger) *Parser {
	if regexFilePath != "" {
		if regexBytes, err := os.ReadFile(regexFilePath); err == nil {
			if parser, err := uaparser.NewFromBytes(regexBytes); err == nil {
				log.Info("User-Agent parser initialized from regexes file", zap.String("regexes_file", regexFilePath))
				return &Parser{parser: parser, log: log}
			}
		}
		log.Warn("failed to load User-Agent regexes file, using embedded definitions", zap.String("regexes_file", regexFilePath))
	}

	return &Parser{parser: uaparser.NewFromSaved(), log: log}
}

// Classify assigns a device class from the raw User-Agent alone. This is the
// classification stored on every visitor event.
func (p *Parser) Classify(userAgent string) string {
	return ClassifyDevice(userAgent)
}

// ClassifyDevice applies the ordered substring rules: "mobile" wins over
// "tablet", and everything else is desktop.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	for _, rule := range deviceRules {
		if strings.Contains(ua, rule.pattern) {
			return rule.device
		}
	}
	return DeviceDesktop
}

// Parse returns the device class plus browser and OS families resolved via
// uap-go. Browser and OS stay empty when the User-Agent is unrecognized.
func (p *Parser) Parse(userAgent string) *DeviceInfo {
	info := &DeviceInfo{
		DeviceType: ClassifyDevice(userAgent),
		Raw:        userAgent,
	}
	if userAgent == "" {
		return info
	}

	client := p.parser.Parse(userAgent)
	info.Browser = familyOrEmpty(client.UserAgent.Family)
	info.OS = familyOrEmpty(client.Os.Family)

	p.log.Debug("parsed User-Agent",
		zap.String("device_type", info.DeviceType),
		zap.String("browser", info.Browser),
		zap.String("os", info.OS),
	)

	return info
}

// familyOrEmpty maps uap-go's "Other" placeholder to an empty string.
func familyOrEmpty(family string) string {
	if family == "" || family == "Other" {
		return ""
	}
	return family
}

// String implements fmt.Stringer for logging.
func (d *DeviceInfo) String() string {
	return fmt.Sprintf("%s/%s/%s", d.DeviceType, d.Browser, d.OS)
}
