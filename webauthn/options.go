package webauthn

// UserEntity identifies the account a credential is being created for.
type UserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// RelyingParty identifies the server in ceremony options.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PubKeyCredParam names an acceptable credential algorithm.
type PubKeyCredParam struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

// CredentialDescriptor references an already-registered credential.
type CredentialDescriptor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RegistrationOptions is the publicKey options object for a create ceremony,
// shaped for direct JSON delivery to the browser.
type RegistrationOptions struct {
	Challenge          string                 `json:"challenge"`
	RP                 RelyingParty           `json:"rp"`
	User               UserEntity             `json:"user"`
	PubKeyCredParams   []PubKeyCredParam      `json:"pubKeyCredParams"`
	ExcludeCredentials []CredentialDescriptor `json:"excludeCredentials,omitempty"`
	Timeout            int                    `json:"timeout,omitempty"`
	Attestation        string                 `json:"attestation,omitempty"`
}

// AssertionOptions is the publicKey options object for a get ceremony.
type AssertionOptions struct {
	Challenge        string                 `json:"challenge"`
	RPID             string                 `json:"rpId"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials,omitempty"`
	UserVerification string                 `json:"userVerification,omitempty"`
	Timeout          int                    `json:"timeout,omitempty"`
}

// DefaultCredParams lists the algorithms offered at registration: ES256
// first, RS256 as fallback.
func DefaultCredParams() []PubKeyCredParam {
	return []PubKeyCredParam{
		{Type: "public-key", Alg: -7},
		{Type: "public-key", Alg: -257},
	}
}
