package config

// ApplyDefaults fills in any settings still unset after the file and
// environment layers have been applied.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8765
	}
	if c.Notes.Dir == "" {
		c.Notes.Dir = "~/meeting_notes"
	}
	if len(c.Notes.Extensions) == 0 {
		c.Notes.Extensions = []string{".md"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "~/.notes/notes.db"
	}
	if c.Storage.VectorStorePath == "" {
		c.Storage.VectorStorePath = "~/.notes/vectors.bin"
	}
	if c.Index.ChunkSize == 0 {
		c.Index.ChunkSize = 750
	}
	if c.Index.ChunkOverlap == 0 {
		c.Index.ChunkOverlap = 100
	}
	if c.Embedding.ModelName == "" {
		c.Embedding.ModelName = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "meetingNotes"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "gemma3"
	}
	if c.Chat.Host == "" {
		c.Chat.Host = "http://localhost:11434"
	}
}
