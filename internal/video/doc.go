// Package video adapts frame inputs and overlay outputs to the pipeline.
//
// Sources: DirSource reads an image sequence from a directory, FFmpegSource
// pipes a video file through ffmpeg as a PNG stream, and CaptureSource (only
// in builds with -tags gocv) uses OpenCV's VideoCapture. Open picks one from
// the input path.
//
// Sinks: PNGSink writes numbered overlay files; WindowSink (gocv builds)
// shows them in a window and turns a 'q' keypress into
// pipeline.ErrStopRequested.
package video
