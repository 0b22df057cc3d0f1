package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Collections: named lists of saved places
CREATE TABLE IF NOT EXISTS collections (
    collection_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Places: normalized place records, soft-deleted via deleted_at
CREATE TABLE IF NOT EXISTS places (
    place_id TEXT PRIMARY KEY,       -- uuid
    collection_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    address TEXT NOT NULL,
    lat REAL NOT NULL,
    lng REAL NOT NULL,
    external_id TEXT,
    types TEXT,                      -- JSON array
    website TEXT,
    phone TEXT,
    rating REAL,
    rating_count INTEGER,
    opening_hours TEXT,              -- JSON array
    source_url TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP,
    FOREIGN KEY (collection_id) REFERENCES collections(collection_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_places_collection ON places(collection_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_places_source_url ON places(source_url);

-- Resolutions: every pipeline run, successful or not
CREATE TABLE IF NOT EXISTS resolutions (
    resolution_id INTEGER PRIMARY KEY AUTOINCREMENT,
    input TEXT NOT NULL,
    resolved_url TEXT,
    stage TEXT,
    success BOOLEAN NOT NULL,
    error_type TEXT,
    place_id TEXT,
    resolved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_resolutions_time ON resolutions(resolved_at);
CREATE INDEX IF NOT EXISTS idx_resolutions_success ON resolutions(success);
`
