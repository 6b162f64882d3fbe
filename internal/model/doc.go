package model

// Package model defines domain data structures shared across the bot: sessions,
// format menu entries, download jobs, progress ticks and the failure taxonomy.
// State enums expose explicit forward-only transitions.
