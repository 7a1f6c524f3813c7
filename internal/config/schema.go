package config

// Schema is the JSON schema every config file must satisfy
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "session": {
      "type": "object",
      "properties": {
        "main_key": {"type": "string"},
        "dm_scope": {
          "type": "string",
          "enum": ["", "main", "per-peer", "per-channel-peer", "per-account-channel-peer"]
        },
        "thread_suffix": {"type": "boolean"},
        "identity_links": {
          "type": "object",
          "additionalProperties": {
            "type": "array",
            "items": {"type": "string"}
          }
        }
      }
    },
    "agents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "default": {"type": "boolean"},
          "main_key": {"type": "string"},
          "dm_scope": {
            "type": "string",
            "enum": ["", "main", "per-peer", "per-channel-peer", "per-account-channel-peer"]
          }
        }
      }
    },
    "bindings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["agent_id"],
        "properties": {
          "agent_id": {"type": "string", "minLength": 1},
          "channel": {"type": "string"},
          "account_id": {"type": "string"},
          "peer": {"type": "string"},
          "default": {"type": "boolean"}
        }
      }
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "file": {"type": "string"},
        "console": {"type": "boolean"},
        "pretty": {"type": "boolean"},
        "redaction": {"type": "boolean"}
      }
    },
    "metrics": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"}
      }
    },
    "data_dir": {"type": "string"}
  }
}`
