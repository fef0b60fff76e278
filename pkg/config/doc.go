/*
Package config loads node configuration from YAML.

Every field has a default, so a node runs with no config file at all. A
file only needs the fields it changes:

	dataDir: /srv/shoal
	listenAddr: 0.0.0.0:7427
	streams: 16
	logLevel: debug
	serializer: gob

Load applies defaults, parses the file over them, and validates the
result. cmd/shoal is the only consumer; packages below it take the
specific values they need, never the whole Config.
*/
package config
