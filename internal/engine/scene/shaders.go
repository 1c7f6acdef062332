package scene

const terrainVertexShader = `#version 410 core
layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;

uniform mat4 uViewProj;

out vec3 vNormal;
out vec3 vPosition;

void main() {
    vNormal = aNormal;
    vPosition = aPosition;
    gl_Position = uViewProj * vec4(aPosition, 1.0);
}
`

const terrainFragmentShader = `#version 410 core
in vec3 vNormal;
in vec3 vPosition;

uniform vec3 uLightDir;
uniform vec3 uAmbient;
uniform vec3 uDiffuse;

out vec4 fragColor;

void main() {
    vec3 normal = normalize(vNormal);
    float lambert = max(dot(normal, -normalize(uLightDir)), 0.0);
    vec3 color = uAmbient + uDiffuse * lambert;
    fragColor = vec4(color, 1.0);
}
`
