// Package page contains CDP Page domain parameter and result types used
// by the canonical print protocol. These types carry no Do/Start
// transport methods: dispatch, correlation, and response parsing are all
// owned by pkg/devtools's Protocol engine, which only needs these as
// typed marshal/unmarshal targets.
package page

// Enable contains the parameters for the CDP command `Page.enable`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Page/#method-enable
type Enable struct{}

// Navigate contains the parameters for the CDP command `Page.navigate`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Page/#method-navigate
type Navigate struct {
	URL string `json:"url"`
}

// NewNavigate constructs a Navigate command with its required parameter.
func NewNavigate(url string) *Navigate { return &Navigate{URL: url} }

// NavigateResult contains the browser's response to Page.navigate.
type NavigateResult struct {
	FrameID   string `json:"frameId"`
	ErrorText string `json:"errorText,omitempty"`
}

// FrameStoppedLoading is the CDP event `Page.frameStoppedLoading`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Page/#event-frameStoppedLoading
type FrameStoppedLoading struct {
	FrameID string `json:"frameId"`
}

// EventFrameStoppedLoading is the CDP event method name.
const EventFrameStoppedLoading = "Page.frameStoppedLoading"

// PrintToPDF contains the parameters for the CDP command
// `Page.printToPDF`.
//
// Print page as PDF.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Page/#method-printToPDF
type PrintToPDF struct {
	// Paper orientation. Defaults to false.
	Landscape bool `json:"landscape,omitempty"`
	// Display header and footer. Defaults to false.
	DisplayHeaderFooter bool `json:"displayHeaderFooter,omitempty"`
	// Print background graphics. Defaults to false.
	PrintBackground bool `json:"printBackground,omitempty"`
	// Scale of the webpage rendering. Defaults to 1.
	Scale float64 `json:"scale,omitempty"`
	// Paper width in inches. Defaults to 8.5 inches.
	PaperWidth float64 `json:"paperWidth,omitempty"`
	// Paper height in inches. Defaults to 11 inches.
	PaperHeight float64 `json:"paperHeight,omitempty"`
	// Top margin in inches. Defaults to 1cm (~0.4 inches).
	MarginTop float64 `json:"marginTop,omitempty"`
	// Bottom margin in inches. Defaults to 1cm (~0.4 inches).
	MarginBottom float64 `json:"marginBottom,omitempty"`
	// Left margin in inches. Defaults to 1cm (~0.4 inches).
	MarginLeft float64 `json:"marginLeft,omitempty"`
	// Right margin in inches. Defaults to 1cm (~0.4 inches).
	MarginRight float64 `json:"marginRight,omitempty"`
	// Paper ranges to print, e.g. "1-5, 8, 11-13". Defaults to the empty
	// string, which means print all pages.
	PageRanges string `json:"pageRanges,omitempty"`
	// Whether to prefer page size as defined by CSS. Defaults to false.
	PreferCSSPageSize bool `json:"preferCSSPageSize,omitempty"`
}

// NewPrintToPDF constructs a PrintToPDF command with every field at its
// CDP default; use the Set* builder methods to override individual
// fields.
func NewPrintToPDF() *PrintToPDF { return &PrintToPDF{} }

// SetLandscape sets the optional `landscape` parameter.
func (p *PrintToPDF) SetLandscape(v bool) *PrintToPDF { p.Landscape = v; return p }

// SetDisplayHeaderFooter sets the optional `displayHeaderFooter` parameter.
func (p *PrintToPDF) SetDisplayHeaderFooter(v bool) *PrintToPDF { p.DisplayHeaderFooter = v; return p }

// SetPrintBackground sets the optional `printBackground` parameter.
func (p *PrintToPDF) SetPrintBackground(v bool) *PrintToPDF { p.PrintBackground = v; return p }

// SetScale sets the optional `scale` parameter.
func (p *PrintToPDF) SetScale(v float64) *PrintToPDF { p.Scale = v; return p }

// SetPaperWidth sets the optional `paperWidth` parameter, in inches.
func (p *PrintToPDF) SetPaperWidth(v float64) *PrintToPDF { p.PaperWidth = v; return p }

// SetPaperHeight sets the optional `paperHeight` parameter, in inches.
func (p *PrintToPDF) SetPaperHeight(v float64) *PrintToPDF { p.PaperHeight = v; return p }

// SetMargins sets all four margins at once, in inches.
func (p *PrintToPDF) SetMargins(top, bottom, left, right float64) *PrintToPDF {
	p.MarginTop, p.MarginBottom, p.MarginLeft, p.MarginRight = top, bottom, left, right
	return p
}

// SetPageRanges sets the optional `pageRanges` parameter.
func (p *PrintToPDF) SetPageRanges(v string) *PrintToPDF { p.PageRanges = v; return p }

// SetPreferCSSPageSize sets the optional `preferCSSPageSize` parameter.
func (p *PrintToPDF) SetPreferCSSPageSize(v bool) *PrintToPDF { p.PreferCSSPageSize = v; return p }

// PrintToPDFResult contains the browser's response to Page.printToPDF.
type PrintToPDFResult struct {
	// Data is the base64-encoded PDF data.
	Data string `json:"data"`
}
