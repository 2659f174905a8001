package agent

import (
	"github.com/spf13/cobra"
)

func initSinkFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.StringSlice("sink.outputs", defaultCfg.Sink.Outputs, "-> Record outputs [log,file,memory] | 记录输出目标")
	f.String("sink.file_path", defaultCfg.Sink.FilePath, "-> Directory of the file output | file 输出目录")
	f.Int("sink.memory_size", defaultCfg.Sink.MemorySize, "-> Records kept by the memory output | memory 输出保留条数")
}
