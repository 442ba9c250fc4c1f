package config

// GenerateConfigTemplate returns an annotated YAML configuration.
func GenerateConfigTemplate() string {
	return `# sqlq configuration
database:
  host: "127.0.0.1"
  port: 3306
  name: "sqlq"
  user: "root"
  password: ""
  max_open: 16
  max_idle: 8
  conn_max_lifetime: "5m"
  params: {}

engine:
  workers: 4
  poll_interval: "20ms"
  drain_interval: "50ms"
  assignment: "round_robin"  # round_robin, shortest_queue
  tracker_initial: 100
  tracker_samples: 25

log:
  backend: "zap"  # zap, noop
  level: "info"
  file: ""        # e.g. .logs/sqlq.log
  development: false

telemetry:
  enabled: false
  endpoint: "localhost:4317"
  service_name: "sqlq"
  sample_rate: 1.0

http:
  addr: ":8089"
`
}
