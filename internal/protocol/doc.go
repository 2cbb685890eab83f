// Package protocol defines the line-oriented wire format spoken by the
// resident daemon.
//
// A caller writes one Request per line and reads back one Response per line.
// Two encodings are supported. The XML encoding is the historical one:
//
//	<Java ClassName="demo.Tool" Jar="/path/tool.jar" Arguments="--version" />
//	<Java Exit="True" />
//	<Java ExitCode="0" StandardOutput="demo 1.0&#xA;"></Java>
//
// The JSON encoding carries the same fields:
//
//	{"operation":"demo.Tool","locator":"/path/tool.jar","arguments":"--version"}
//	{"exit":true}
//	{"exitCode":0,"stdout":"demo 1.0\n"}
//
// Encoders never emit a raw line terminator, so every Response occupies
// exactly one line regardless of the captured output it carries. Decode
// failures wrap ErrMalformedRequest.
package protocol
