package auth

type Credentials interface {
	Credentials()
}

type CleartextClient interface {
	Credentials

	EncodeCleartext() string
}

type CleartextServer interface {
	Credentials

	VerifyCleartext(value string) error
}
