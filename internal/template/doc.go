// Package template implements the path-pattern engine every pipeline
// address is built on.
//
// A template is a named pattern such as
//
//	{job_path}/shots/{sequence}/{shot}/{dcc}/{task}/work/{shot}_{task}_{tag}_v{ver:03d}.{extn}
//
// supporting {token} placeholders, printf-style zero padding specs, and
// [optional] bracket groups which expand to every on/off combination with
// the most specific variant matched first. Parse and Format are exact
// inverses over the tokens a pattern carries, and ApplyData specializes a
// template by binding tokens ahead of time (a job binds job_path once, then
// entity paths parse at a cropped depth).
//
// Selection over a job's registered template set is deliberately strict:
// narrowing that leaves more than one candidate is an error carrying the
// candidate names, never a silent pick.
package template
