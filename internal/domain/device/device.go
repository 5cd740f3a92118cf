// Package device classifies the visitor's environment into a layout class.
package device

import (
	"regexp"
)

// Class is the layout class of a visitor.
type Class string

const (
	Mobile  Class = "mobile"
	Tablet  Class = "tablet"
	Desktop Class = "desktop"
)

// Width thresholds in CSS pixels.
const (
	TabletMinWidth  = 768
	DesktopMinWidth = 1024
	// TabletLandscapeMaxWidth is the widest viewport a tablet user agent may
	// report and still be treated as a tablet.
	TabletLandscapeMaxWidth = 1366
)

// Tree is the page tree a class is served from.
type Tree string

const (
	MobileTree  Tree = "mobile"
	DesktopTree Tree = "desktop"
)

var (
	mobileUA = regexp.MustCompile(`(?i)iphone|ipod|android.+mobile|windows phone|blackberry|opera mini|iemobile|mobile safari`) //nolint:gochecknoglobals // compiled once
	tabletUA = regexp.MustCompile(`(?i)ipad|tablet|kindle|silk|playbook|android`)                                               //nolint:gochecknoglobals // compiled once
)

// Classify picks the class from the viewport width, consulting the user agent
// only when the width is unknown (0) or a tablet reports a landscape desktop width.
func Classify(width int, userAgent string) Class {
	if width <= 0 {
		return fromUserAgent(userAgent)
	}
	switch {
	case width < TabletMinWidth:
		return Mobile
	case width < DesktopMinWidth:
		return Tablet
	case width <= TabletLandscapeMaxWidth && isTablet(userAgent):
		return Tablet
	default:
		return Desktop
	}
}

// Tree returns the page tree for c: mobile and tablet share the mobile tree.
func (c Class) Tree() Tree {
	if c == Desktop {
		return DesktopTree
	}
	return MobileTree
}

func fromUserAgent(ua string) Class {
	switch {
	case isTablet(ua):
		return Tablet
	case mobileUA.MatchString(ua):
		return Mobile
	default:
		return Desktop
	}
}

// isTablet matches tablet agents, excluding Android phones which also say "android".
func isTablet(ua string) bool {
	if ua == "" || mobileUA.MatchString(ua) {
		return false
	}
	return tabletUA.MatchString(ua)
}
