package testutil

// Toolchain output locations relative to the project root.
const (
	APKOutputDir = "build/app/outputs/flutter-apk"
	IPAOutputDir = "build/ios/ipa"
)

// WithStandardLayout adds the tree `flutter create` produces, trimmed to
// what the watcher and path resolution look at.
func (p *Project) WithStandardLayout() *Project {
	return p.
		WithPubspec("app").
		WithFile("lib/main.dart", "void main() {}\n").
		WithDir("lib/src").
		WithFile("android/app/build.gradle", "android {}\n").
		WithDir("android/app/src/main/java/io/flutter/plugins").
		WithFile("ios/Runner.xcworkspace/contents.xcworkspacedata", "<Workspace/>\n").
		WithFile("ios/Flutter/AppFrameworkInfo.plist", "<plist/>\n").
		WithFile("README.md", "# app\n").
		WithDir("build")
}

// WithAPK adds a built APK where flutter leaves it, e.g. "app-release.apk".
func (p *Project) WithAPK(name string) *Project {
	return p.WithFile(APKOutputDir+"/"+name, "apk:"+name)
}

// WithIPA adds a built IPA where flutter leaves it, e.g. "Runner.ipa".
func (p *Project) WithIPA(name string) *Project {
	return p.WithFile(IPAOutputDir+"/"+name, "ipa:"+name)
}
