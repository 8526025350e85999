package domain

// ProtectedDocument is the outcome of protecting an outgoing payload.
type ProtectedDocument struct {
	Document  any
	Encrypted bool
	KeyID     string
	Report    WalkReport
}

// TransformedDocument is the outcome of revealing or rewrapping a stored payload.
type TransformedDocument struct {
	Document any
	Report   WalkReport
}
