package shader

// VertexOutputSource is the struct passed from the full-screen vertex stage to every
// fragment shader. Injected by //@retort:include vertex_output.
const VertexOutputSource = `struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}
`

// ConstantsSource holds common math constants. Injected by //@retort:include constants.
const ConstantsSource = `const PI: f32 = 3.14159265358979;
const TAU: f32 = 6.28318530717959;
const E: f32 = 2.71828182845905;
`

// DefaultVertexFilename and DefaultFragmentFilename name the builtin sources in diagnostics.
const (
	DefaultVertexFilename   = "<builtin vertex>"
	DefaultFragmentFilename = "<builtin fragment>"
)

// DefaultVertexSource draws a full-screen quad as a 4-vertex triangle strip with clockwise
// winding. uv runs from (0, 0) at the top left to (1, 1) at the bottom right.
const DefaultVertexSource = `//@retort:include vertex_output

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var positions = array<vec2<f32>, 4>(
        vec2<f32>(-1.0, -1.0),
        vec2<f32>(-1.0,  1.0),
        vec2<f32>( 1.0, -1.0),
        vec2<f32>( 1.0,  1.0)
    );

    var out: VertexOutput;
    let p = positions[idx];
    out.position = vec4<f32>(p, 0.0, 1.0);
    out.uv = vec2<f32>(p.x * 0.5 + 0.5, 0.5 - p.y * 0.5);
    return out;
}
`

// DefaultFragmentSource is a static gradient over uv, shown until a user shader loads.
const DefaultFragmentSource = `//@retort:include vertex_output

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(input.uv.x, input.uv.y, 0.5, 1.0);
}
`
