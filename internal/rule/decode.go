package rule

// Filter carries the caller-supplied filter payload in whichever encoding
// the client used. At most one of the three fields may be set.
type Filter struct {
	// Conditions is the legacy flat list encoding.
	Conditions []map[string]any `json:"conditions,omitempty"`
	// Logic is the frontend query-builder tree.
	Logic map[string]any `json:"logic,omitempty"`
	// Rules is the server-authored tree.
	Rules map[string]any `json:"rules,omitempty"`
}

// Decode normalizes a filter payload into the canonical AST.
//
// A payload with none of the encodings set decodes to a nil Node, meaning
// "no caller filter" - the compiler still injects the mandatory scope.
// A payload with more than one encoding set fails with ErrCodeAmbiguous:
// the legacy API never defined a precedence between them and guessing one
// silently would change matched sets behind the caller's back.
func Decode(f Filter) (Node, error) {
	supplied := 0
	if len(f.Conditions) > 0 {
		supplied++
	}
	if len(f.Logic) > 0 {
		supplied++
	}
	if len(f.Rules) > 0 {
		supplied++
	}

	switch {
	case supplied == 0:
		return nil, nil
	case supplied > 1:
		return nil, &ParseError{
			Code:    ErrCodeAmbiguous,
			Message: "more than one filter encoding supplied; use exactly one of conditions, logic, rules",
		}
	}

	if len(f.Conditions) > 0 {
		return DecodeConditions(f.Conditions)
	}
	if len(f.Logic) > 0 {
		return DecodeLogic(f.Logic)
	}
	return DecodeRules(f.Rules)
}
