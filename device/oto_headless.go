//go:build headless

package device

// Oto is unavailable in headless builds.
type Oto struct {
	Null
}

// NewOto returns a device whose Open always fails.
func NewOto() *Oto {
	return &Oto{}
}

func (o *Oto) Open(Spec) error {
	return ErrBackendUnavailable
}
