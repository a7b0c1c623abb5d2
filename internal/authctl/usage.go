package authctl

import "io"

const usageText = `authctl - command line client for the web auth API

Usage:
  authctl [global options] <command> [options]

Global options:
  -url string         Base URL of the auth service (overrides base_url)
  -token-file string  Session file (overrides token_file)
  -v                  Enable debug logging

Commands:
  captcha   [-out file]                  Fetch a captcha; -out writes the PNG
  login     -u user -p pass [-code c -uuid id]
  register  -u user -p pass [-field key=value ...]
  refresh                                Rotate the session token
  info                                   User, roles and permissions
  whoami                                 Current user profile
  validate                               Ask the server whether the token is live
  passwd    -old pass -new pass
  logout                                 End the session and forget the token
  status                                 Inspect the stored token locally
  help                                   Show this message

Environment:
  AUTHCLIENT_CONFIG names a YAML config file; AUTHCLIENT_* variables override
  individual keys, e.g. AUTHCLIENT_BASE_URL. A .env file is loaded when present.

Examples:
  authctl captcha -out code.png
  authctl login -u admin -p admin123 -code 12 -uuid 6f1c...
  authctl register -u alice -p s3cret! -field nickname=Alice
  authctl -url http://auth.local:8080 whoami
`

// ShowHelp prints usage information.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, usageText)
}
