package cmdbuffer

// The handful of real GL/WebGL enum values the scheduler needs to branch
// on (bind targets and the OOM error code); everything else is opaque and
// passed straight through to the backend.
const (
	GLArrayBuffer        uint32 = 0x8892
	GLElementArrayBuffer uint32 = 0x8893
	GLFramebuffer        uint32 = 0x8D40
	GLOutOfMemory        uint32 = 0x0505
)
