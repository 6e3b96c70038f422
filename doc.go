// Package trajstore records the image observations of many parallel
// reinforcement-learning environments as tiled video segments and replays
// any single episode of any environment on demand.
//
// # Recording
//
// Every training step passes one frame per environment plus the done flags
// of that step:
//
//	store, _ := trajstore.New(trajstore.Config{
//	    OutputFolder:        "./videos",
//	    MaxFramesPerSegment: 1000,
//	    GridSize:            2,
//	    FrameHeight:         84,
//	    FrameWidth:          84,
//	    NumEnvs:             4,
//	})
//	defer store.Close()
//
//	for step := range steps {
//	    if err := store.UpdateAndSaveFrame(observations, dones); err != nil {
//	        return err
//	    }
//	}
//
// The frames of one step are composed into a single grid frame. Grid frames
// are appended to the open segment; when it holds MaxFramesPerSegment frames
// it is sealed together with its episode index and the next segment is
// opened.
//
// # Episode ids
//
// Each environment has an episode counter starting at zero. The index row of
// a frame records the counters before that step's done flags are applied, so
// the frame on which an episode ends still belongs to that episode.
//
// # Retrieval
//
//	slice, _ := store.GetSlice(ctx, env, episode)
//	for i := range slice.Len() {
//	    img := slice.Image(i)
//	    ...
//	}
//
// GetSlice reads sealed segments and the open one, and keeps serving the
// sealed segments after Close. An output folder of an earlier process can
// be read with OpenArchive.
package trajstore
