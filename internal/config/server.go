package config

import "github.com/urfave/cli/v3"

// Server holds controller server configuration
type Server struct {
	Addr      string
	APIToken  string
	ProbeHost string
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server listen address",
			Value:       ":3000",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("GRAPHDEPLOY_ADDR"),
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token guarding the management API (empty disables auth)",
			Destination: &c.APIToken,
			Sources:     cli.EnvVars("GRAPHDEPLOY_API_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "probe-host",
			Usage:       "Host where deployment ports are published, used for liveness probes",
			Value:       "127.0.0.1",
			Destination: &c.ProbeHost,
			Sources:     cli.EnvVars("GRAPHDEPLOY_PROBE_HOST"),
		},
	}
}
