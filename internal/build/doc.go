// Package build wraps the Flutter toolchain to produce mobile packages.
//
// A build is a straight-line pipeline with one abort point:
//
//	EnsureOutputDir -> [clean] -> ComposeBuildCommand -> Runner.Run -> RelocateArtifact
//
// A non-zero exit from the toolchain aborts the run with a *CommandFailedError
// and the artifact is left where it is. A successful run whose artifact is
// missing completes normally with ErrArtifactNotFound in Result.Warning.
//
// Example usage:
//
//	cfg := build.DefaultAndroidConfig("/path/to/app")
//	w := build.NewWrapper(build.NewExecRunner(), build.WithReporter(console))
//	res, err := w.Run(ctx, cfg)
//	if errors.Is(err, build.ErrBuildCommandFailed) {
//	    os.Exit(1)
//	}
//	fmt.Println(res.ArtifactPath)
package build
