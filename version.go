package main

// schemaVersion is the config/audit schema revision this build understands.
const schemaVersion = 1
