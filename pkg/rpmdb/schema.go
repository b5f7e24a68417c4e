package rpmdb

const schema = `
CREATE TABLE IF NOT EXISTS packages (
    nevra TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    epoch INTEGER NOT NULL DEFAULT 0,
    version TEXT NOT NULL,
    rel TEXT NOT NULL DEFAULT '',
    arch TEXT NOT NULL,
    repo TEXT NOT NULL,
    summary TEXT,
    size_bytes INTEGER,
    checksum_type TEXT,
    checksum TEXT,
    location TEXT,
    reason TEXT NOT NULL,
    installed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS deps (
    nevra TEXT NOT NULL,
    kind TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    flags INTEGER NOT NULL DEFAULT 0,
    epoch INTEGER NOT NULL DEFAULT 0,
    version TEXT NOT NULL DEFAULT '',
    rel TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (nevra, kind, position),
    FOREIGN KEY (nevra) REFERENCES packages(nevra) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS files (
    nevra TEXT NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (nevra, path),
    FOREIGN KEY (nevra) REFERENCES packages(nevra) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS scriptlets (
    nevra TEXT NOT NULL,
    hook TEXT NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (nevra, hook),
    FOREIGN KEY (nevra) REFERENCES packages(nevra) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name);
CREATE INDEX IF NOT EXISTS idx_deps_name ON deps(name);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
`
