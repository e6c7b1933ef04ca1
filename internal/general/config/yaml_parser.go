package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseYAML parses the specific two-level mapping used by config.yaml
func parseYAML(r io.Reader, cfg *Config) error {
	type section int
	const (
		none section = iota
		db
		rd
		rm
		lk
		sv
		jw
	)

	scanner := bufio.NewScanner(r)
	var cur section

	lineNo := 0
	seenTop := map[section]bool{}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if len(line) > 0 && (line[0] != ' ' && line[0] != '\t') {
			var next section
			switch strings.TrimSpace(line) {
			case "database:":
				next = db
			case "redis:":
				next = rd
			case "rabbitmq:":
				next = rm
			case "lock:":
				next = lk
			case "service:":
				next = sv
			case "jwt:":
				next = jw
			default:
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, strings.TrimSuffix(strings.TrimSpace(line), ":"))
			}
			if seenTop[next] {
				return fmt.Errorf("line %d: duplicate %q section", lineNo, strings.TrimSuffix(strings.TrimSpace(line), ":"))
			}
			seenTop[next] = true
			cur = next
			continue
		}

		// expect indented "key: value"
		if cur == none {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := strings.TrimLeft(strings.TrimSpace(trim[colon+1:]), " \t")

		intVal := func(field string) (int, error) {
			p, err := strconv.Atoi(resolveScalar(val))
			if err != nil {
				return 0, fmt.Errorf("line %d: %s must be int: %v", lineNo, field, err)
			}
			return p, nil
		}

		switch cur {
		case db:
			switch key {
			case "host":
				cfg.Database.Host = resolveScalar(val)
			case "port":
				p, err := intVal("database.port")
				if err != nil {
					return err
				}
				cfg.Database.Port = p
			case "user":
				cfg.Database.User = resolveScalar(val)
			case "password":
				cfg.Database.Password = resolveScalar(val)
			case "database":
				cfg.Database.Name = resolveScalar(val)
			default:
				return fmt.Errorf("line %d: unknown key in database: %q", lineNo, key)
			}
		case rd:
			switch key {
			case "host":
				cfg.Redis.Host = resolveScalar(val)
			case "port":
				p, err := intVal("redis.port")
				if err != nil {
					return err
				}
				cfg.Redis.Port = p
			case "password":
				cfg.Redis.Password = resolveScalar(val)
			case "db":
				p, err := intVal("redis.db")
				if err != nil {
					return err
				}
				cfg.Redis.DB = p
			default:
				return fmt.Errorf("line %d: unknown key in redis: %q", lineNo, key)
			}
		case rm:
			switch key {
			case "host":
				cfg.RabbitMQ.Host = resolveScalar(val)
			case "port":
				p, err := intVal("rabbitmq.port")
				if err != nil {
					return err
				}
				cfg.RabbitMQ.Port = p
			case "user":
				cfg.RabbitMQ.User = resolveScalar(val)
			case "password":
				cfg.RabbitMQ.Password = resolveScalar(val)
			default:
				return fmt.Errorf("line %d: unknown key in rabbitmq: %q", lineNo, key)
			}
		case lk:
			switch key {
			case "ttl_seconds":
				p, err := intVal("lock.ttl_seconds")
				if err != nil {
					return err
				}
				cfg.Lock.TTLSeconds = p
			case "max_attempts":
				p, err := intVal("lock.max_attempts")
				if err != nil {
					return err
				}
				cfg.Lock.MaxAttempts = p
			case "base_delay_ms":
				p, err := intVal("lock.base_delay_ms")
				if err != nil {
					return err
				}
				cfg.Lock.BaseDelayMs = p
			case "key_prefix":
				cfg.Lock.KeyPrefix = resolveScalar(val)
			default:
				return fmt.Errorf("line %d: unknown key in lock: %q", lineNo, key)
			}
		case sv:
			switch key {
			case "port":
				p, err := intVal("service.port")
				if err != nil {
					return err
				}
				cfg.Service.Port = p
			case "max_concurrent":
				p, err := intVal("service.max_concurrent")
				if err != nil {
					return err
				}
				cfg.Service.MaxConcurrent = p
			default:
				return fmt.Errorf("line %d: unknown key in service: %q", lineNo, key)
			}
		case jw:
			switch key {
			case "secret_key":
				cfg.JWT.SecretKey = resolveScalar(val)
			default:
				return fmt.Errorf("line %d: unknown key in jwt: %q", lineNo, key)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return nil
}

// resolveScalar trims whitespace and removes surrounding quotes from YAML-like scalars.
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	// if value is quoted with "..." or '...', remove quotes safely
	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				return unq
			}
			// fallback if strconv.Unquote fails (e.g., mismatched quotes)
			return s[1 : n-1]
		}
	}

	return s
}
