// Package security contains the single CDP Security domain type this
// engine needs: the certificate-error-ignoring call issued during
// Session bootstrap when Config.IgnoreCertificateErrors is set.
package security

// SetIgnoreCertificateErrors contains the parameters for the CDP command
// `Security.setIgnoreCertificateErrors`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Security/#method-setIgnoreCertificateErrors
type SetIgnoreCertificateErrors struct {
	Ignore bool `json:"ignore"`
}

// NewIgnore constructs the parameters for ignoring every TLS certificate
// error on this target.
func NewIgnore() *SetIgnoreCertificateErrors {
	return &SetIgnoreCertificateErrors{Ignore: true}
}
