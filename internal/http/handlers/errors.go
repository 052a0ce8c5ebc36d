package handlers

import "errors"

var errMissingLookupParams = errors.New("number and email query params are required")
