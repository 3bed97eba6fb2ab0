package bisim

import "errors"

// ErrInvalidOptions reports an incompatible option combination. It is
// detected before any refinement work starts and aborts the decomposition;
// there is no partial result.
var ErrInvalidOptions = errors.New("invalid bisimulation options")

// ErrQuotientNotBuilt is returned when the quotient model is requested but
// was not built, either because the decomposition has not run or because
// BuildQuotient was disabled.
var ErrQuotientNotBuilt = errors.New("quotient model was not built")
