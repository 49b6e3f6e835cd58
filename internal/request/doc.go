// Package request turns a submitted publishing form into a Command.
//
// ParseForm decodes the body and Classify decides whether the submission is an
// upload or a removal, checks every field against an ordered rule table and
// reports every missing or invalid field at once.
package request
