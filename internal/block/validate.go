package block

// Validate checks the envelope's shape: it must be present, carry a header
// with a non-empty name and a recognised block type, and have UTF-8
// content. The checksum is not examined. A nil receiver is allowed and
// reported as malformed.
func (e *Envelope) Validate() error {
	if e == nil {
		return NewMalformedError("", "envelope is missing")
	}
	if e.Header == nil {
		return NewMalformedError("", "header is missing")
	}
	if err := e.Header.Validate(); err != nil {
		return err
	}
	return e.Body.validate(e.Header.Name)
}

// Validate checks that the header has a non-empty name and a recognised
// block type.
func (h *Header) Validate() error {
	if NormalizeName(h.Name) == "" {
		return NewMalformedError("", "name is empty")
	}
	if !h.BlockType.Valid() {
		return NewMalformedError(h.Name, "unknown block type %q", string(h.BlockType))
	}
	return nil
}
